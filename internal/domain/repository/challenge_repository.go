package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
)

type ChallengeRepository interface {
	Create(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	CreateSubtasks(ctx context.Context, tx *sql.Tx, subtasks []model.Subtask) error
	FindByID(ctx context.Context, id string) (*model.Challenge, error)
	List(ctx context.Context, userID string, problemID, limit, offset int) ([]model.Challenge, error)
	ListSubtasks(ctx context.Context, tx *sql.Tx, challengeID string) ([]model.Subtask, error)
	LockState(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error)

	UpdateSubtask(ctx context.Context, tx *sql.Tx, subtask *model.Subtask) error
	UpdateState(ctx context.Context, tx *sql.Tx, id string, state model.JudgeState) error
	UpdateSummary(ctx context.Context, tx *sql.Tx, challenge *model.Challenge) error
	ResetForRejudge(ctx context.Context, tx *sql.Tx, id string) error
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `INSERT INTO challenges (id, user_id, problem_id, revision, code, state, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.UserID, c.ProblemID, c.Revision, c.Code, c.State, c.SubmittedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.UserID, c.ProblemID, c.Revision, c.Code, c.State, c.SubmittedAt)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.Create: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) CreateSubtasks(ctx context.Context, tx *sql.Tx, subtasks []model.Subtask) error {
	query := `INSERT INTO subtasks (challenge_id, index, state) VALUES ($1, $2, $3)`
	for i := range subtasks {
		s := &subtasks[i]
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, s.ChallengeID, s.Index, s.State)
		} else {
			_, err = r.db.ExecContext(ctx, query, s.ChallengeID, s.Index, s.State)
		}
		if err != nil {
			return fmt.Errorf("pgChallengeRepository.CreateSubtasks: %w", err)
		}
	}
	return nil
}

func (r *pgChallengeRepository) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT c.id, c.user_id, c.problem_id, c.revision, c.code, c.state, c.result,
	                 c.runtime_ms, c.memory_kb, c.verdict, c.submitted_at, c.updated_at,
	                 u.username, p.name
	          FROM challenges c
	          JOIN users u ON u.id = c.user_id
	          JOIN problems p ON p.id = c.problem_id
	          WHERE c.id = $1`

	c := &model.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.ProblemID, &c.Revision, &c.Code, &c.State, &c.Result,
		&c.RuntimeMs, &c.MemoryKb, &c.Verdict, &c.SubmittedAt, &c.UpdatedAt,
		&c.Username, &c.ProblemName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgChallengeRepository) List(ctx context.Context, userID string, problemID, limit, offset int) ([]model.Challenge, error) {
	var query strings.Builder
	query.WriteString(`SELECT c.id, c.user_id, c.problem_id, c.revision, c.state, c.result,
	                          c.runtime_ms, c.memory_kb, c.submitted_at, u.username, p.name
	                   FROM challenges c
	                   JOIN users u ON u.id = c.user_id
	                   JOIN problems p ON p.id = c.problem_id`)

	var conditions []string
	var args []interface{}
	argID := 1

	if userID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", argID))
		args = append(args, userID)
		argID++
	}
	if problemID > 0 {
		conditions = append(conditions, fmt.Sprintf("c.problem_id = $%d", argID))
		args = append(args, problemID)
		argID++
	}
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(fmt.Sprintf(" ORDER BY c.submitted_at DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.List: %w", err)
	}
	defer rows.Close()

	var challenges []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProblemID, &c.Revision, &c.State, &c.Result,
			&c.RuntimeMs, &c.MemoryKb, &c.SubmittedAt, &c.Username, &c.ProblemName); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.List scan: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (r *pgChallengeRepository) ListSubtasks(ctx context.Context, tx *sql.Tx, challengeID string) ([]model.Subtask, error) {
	query := `SELECT challenge_id, index, state, result, runtime_ms, memory_kb, verdict
	          FROM subtasks WHERE challenge_id = $1 ORDER BY index`
	queryFn := r.db.QueryContext
	if tx != nil {
		queryFn = tx.QueryContext
	}
	rows, err := queryFn(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListSubtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []model.Subtask
	for rows.Next() {
		var s model.Subtask
		if err := rows.Scan(&s.ChallengeID, &s.Index, &s.State, &s.Result, &s.RuntimeMs, &s.MemoryKb, &s.Verdict); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListSubtasks scan: %w", err)
		}
		subtasks = append(subtasks, s)
	}
	return subtasks, rows.Err()
}

// LockState takes a row lock on the challenge and returns its current state.
// Concurrent verdict roll-ups for the same challenge queue up behind the lock,
// so each one sees the subtask rows committed by the one before it.
func (r *pgChallengeRepository) LockState(ctx context.Context, tx *sql.Tx, id string) (model.JudgeState, error) {
	var state model.JudgeState
	err := tx.QueryRowContext(ctx, `SELECT state FROM challenges WHERE id = $1 FOR UPDATE`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgChallengeRepository.LockState: %w", err)
	}
	return state, nil
}

func (r *pgChallengeRepository) UpdateSubtask(ctx context.Context, tx *sql.Tx, s *model.Subtask) error {
	query := `UPDATE subtasks SET state = $1, result = $2, runtime_ms = $3, memory_kb = $4, verdict = $5
	          WHERE challenge_id = $6 AND index = $7`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, s.State, s.Result, s.RuntimeMs, s.MemoryKb, s.Verdict, s.ChallengeID, s.Index)
	} else {
		_, err = r.db.ExecContext(ctx, query, s.State, s.Result, s.RuntimeMs, s.MemoryKb, s.Verdict, s.ChallengeID, s.Index)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.UpdateSubtask: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) UpdateState(ctx context.Context, tx *sql.Tx, id string, state model.JudgeState) error {
	query := `UPDATE challenges SET state = $1, updated_at = NOW() WHERE id = $2`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, state, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, state, id)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.UpdateState: %w", err)
	}
	return nil
}

func (r *pgChallengeRepository) UpdateSummary(ctx context.Context, tx *sql.Tx, c *model.Challenge) error {
	query := `UPDATE challenges SET state = $1, result = $2, runtime_ms = $3, memory_kb = $4, verdict = $5, updated_at = NOW()
	          WHERE id = $6`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.State, c.Result, c.RuntimeMs, c.MemoryKb, c.Verdict, c.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.State, c.Result, c.RuntimeMs, c.MemoryKb, c.Verdict, c.ID)
	}
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.UpdateSummary: %w", err)
	}
	return nil
}

// ResetForRejudge puts the challenge and its subtasks back to pending so the
// judge can evaluate it from scratch.
func (r *pgChallengeRepository) ResetForRejudge(ctx context.Context, tx *sql.Tx, id string) error {
	exec := r.db.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}

	res, err := exec(ctx, `UPDATE challenges SET state = $1, result = $2, runtime_ms = 0, memory_kb = 0, verdict = '', updated_at = NOW()
	                       WHERE id = $3`, model.StatePending, model.ResultNone, id)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.ResetForRejudge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}

	_, err = exec(ctx, `UPDATE subtasks SET state = $1, result = $2, runtime_ms = 0, memory_kb = 0, verdict = ''
	                    WHERE challenge_id = $3`, model.StatePending, model.ResultNone, id)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.ResetForRejudge subtasks: %w", err)
	}
	return nil
}
