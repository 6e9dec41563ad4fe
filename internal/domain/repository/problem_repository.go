package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
)

type ProblemRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindByID(ctx context.Context, id int) (*model.Problem, error)
	List(ctx context.Context, startID, limit int) ([]model.Problem, error)
	Delete(ctx context.Context, id int) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) Upsert(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	tests, err := json.Marshal(p.Tests)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert marshal tests: %w", err)
	}

	query := `INSERT INTO problems (id, name, slug, revision, base_score, time_limit_ms, memory_limit_kb, tests)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (id) DO UPDATE SET
	              name = EXCLUDED.name, slug = EXCLUDED.slug, revision = EXCLUDED.revision,
	              base_score = EXCLUDED.base_score, time_limit_ms = EXCLUDED.time_limit_ms,
	              memory_limit_kb = EXCLUDED.memory_limit_kb, tests = EXCLUDED.tests,
	              updated_at = NOW()`

	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.Name, p.Slug, p.Revision, p.BaseScore, p.TimeLimitMs, p.MemoryLimitKb, tests)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.Name, p.Slug, p.Revision, p.BaseScore, p.TimeLimitMs, p.MemoryLimitKb, tests)
	}
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Upsert: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindByID(ctx context.Context, id int) (*model.Problem, error) {
	query := `SELECT id, name, slug, revision, base_score, time_limit_ms, memory_limit_kb, tests, created_at, updated_at
	          FROM problems WHERE id = $1`

	problem := &model.Problem{}
	var tests []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&problem.ID, &problem.Name, &problem.Slug, &problem.Revision, &problem.BaseScore,
		&problem.TimeLimitMs, &problem.MemoryLimitKb, &tests, &problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindByID: %w", err)
	}
	if err := json.Unmarshal(tests, &problem.Tests); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindByID unmarshal tests: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) List(ctx context.Context, startID, limit int) ([]model.Problem, error) {
	query := `SELECT id, name, slug, revision, base_score, time_limit_ms, memory_limit_kb, tests, created_at, updated_at
	          FROM problems WHERE id >= $1 ORDER BY id LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, startID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.List: %w", err)
	}
	defer rows.Close()
	return scanProblems(rows)
}

func scanProblems(rows *sql.Rows) ([]model.Problem, error) {
	var problems []model.Problem
	for rows.Next() {
		var problem model.Problem
		var tests []byte
		if err := rows.Scan(&problem.ID, &problem.Name, &problem.Slug, &problem.Revision, &problem.BaseScore,
			&problem.TimeLimitMs, &problem.MemoryLimitKb, &tests, &problem.CreatedAt, &problem.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanProblems: %w", err)
		}
		if err := json.Unmarshal(tests, &problem.Tests); err != nil {
			return nil, fmt.Errorf("scanProblems unmarshal tests: %w", err)
		}
		problems = append(problems, problem)
	}
	return problems, rows.Err()
}

func (r *pgProblemRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
