package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"code_arena/internal/domain/model"
)

// AcceptedCount is one aggregated row of the count pass: how many distinct
// users solved a test case in time, together with its weight score.
type AcceptedCount struct {
	ProblemID   int
	Index       int
	Count       int
	WeightScore int
}

// ScoreCandidate is one aggregated row of the score pass: a user's earliest
// accepted timestamp on a test case, the problem's effective deadline for the
// category (nil means no deadline), and the base scores available for it.
type ScoreCandidate struct {
	UserID      string
	ProblemID   int
	Index       int
	AchievedAt  time.Time
	Deadline    *time.Time
	CountScore  *int
	WeightScore *int
}

type RatingRepository interface {
	RebuildTestWeights(ctx context.Context, tx *sql.Tx) error

	AcceptedCounts(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) ([]AcceptedCount, error)
	DeleteRateCounts(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) error
	InsertRateCount(ctx context.Context, tx *sql.Tx, row *model.RateCount) error

	ScoreCandidates(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) ([]ScoreCandidate, error)
	DeleteRateScores(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) error
	InsertRateScore(ctx context.Context, tx *sql.Tx, row *model.RateScore) error

	ProblemInCategory(ctx context.Context, category model.Category, problemID int) (bool, error)
	ProblemRates(ctx context.Context, category model.Category, problemID int) ([]model.ProblemRate, error)
	UserScore(ctx context.Context, category model.Category, userID string, problemID, prosetID int) (int, error)
	Leaderboard(ctx context.Context, category model.Category, limit int) ([]model.RankEntry, error)
}

type pgRatingRepository struct {
	db *sql.DB
}

func NewPgRatingRepository(db *sql.DB) RatingRepository {
	return &pgRatingRepository{db: db}
}

// RebuildTestWeights drops the whole weight table and re-derives it from the
// test definitions of every problem. Runs inside the caller's transaction so a
// failed rebuild leaves the previous weights intact.
func (r *pgRatingRepository) RebuildTestWeights(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM test_weights`); err != nil {
		return fmt.Errorf("pgRatingRepository.RebuildTestWeights delete: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, base_score, tests FROM problems`)
	if err != nil {
		return fmt.Errorf("pgRatingRepository.RebuildTestWeights select: %w", err)
	}
	defer rows.Close()

	type problemTests struct {
		id        int
		baseScore int
		tests     []model.ProblemTest
	}
	var problems []problemTests
	for rows.Next() {
		var p problemTests
		var raw []byte
		if err := rows.Scan(&p.id, &p.baseScore, &raw); err != nil {
			return fmt.Errorf("pgRatingRepository.RebuildTestWeights scan: %w", err)
		}
		// Problems with malformed or missing test definitions contribute no
		// weight rows instead of failing the rebuild.
		if err := json.Unmarshal(raw, &p.tests); err != nil {
			continue
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("pgRatingRepository.RebuildTestWeights rows: %w", err)
	}

	query := `INSERT INTO test_weights (problem_id, index, weight, score) VALUES ($1, $2, $3, $4)`
	for _, p := range problems {
		for index, test := range p.tests {
			score := model.TestScore(p.baseScore, test.Weight)
			if _, err := tx.ExecContext(ctx, query, p.id, index, test.Weight, score); err != nil {
				return fmt.Errorf("pgRatingRepository.RebuildTestWeights insert: %w", err)
			}
		}
	}
	return nil
}

// AcceptedCounts aggregates, per (problem, test case) in the category's
// problem sets, the number of distinct users whose accepted challenge reached
// done at or before the problem's effective deadline. The effective deadline
// is the latest deadline over non-hidden placements, or infinity when no
// placement defines one.
func (r *pgRatingRepository) AcceptedCounts(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) ([]AcceptedCount, error) {
	query := `
		SELECT q.problem_id, q.index, COUNT(*), tw.score
		FROM (
		    SELECT DISTINCT c.user_id, d.problem_id, s.index
		    FROM (
		        SELECT pi.problem_id, COALESCE(MAX(pi.deadline), 'infinity'::timestamptz) AS deadline
		        FROM proitems pi
		        JOIN prosets ps ON ps.id = pi.proset_id
		        WHERE ps.category = $1 AND pi.hidden = FALSE AND ($2::int IS NULL OR pi.problem_id = $2)
		        GROUP BY pi.problem_id
		    ) d
		    JOIN challenges c ON c.problem_id = d.problem_id
		    JOIN subtasks s ON s.challenge_id = c.id
		    JOIN users u ON u.id = c.user_id
		    WHERE u.category = $1
		      AND c.state = $3
		      AND c.submitted_at <= d.deadline
		      AND s.result = $4
		) q
		JOIN test_weights tw ON tw.problem_id = q.problem_id AND tw.index = q.index
		GROUP BY q.problem_id, q.index, tw.score`

	rows, err := tx.QueryContext(ctx, query, category, sqlNullInt(problemID), model.StateDone, model.ResultAC)
	if err != nil {
		return nil, fmt.Errorf("pgRatingRepository.AcceptedCounts: %w", err)
	}
	defer rows.Close()

	var counts []AcceptedCount
	for rows.Next() {
		var c AcceptedCount
		if err := rows.Scan(&c.ProblemID, &c.Index, &c.Count, &c.WeightScore); err != nil {
			return nil, fmt.Errorf("pgRatingRepository.AcceptedCounts scan: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *pgRatingRepository) DeleteRateCounts(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) error {
	query := `DELETE FROM rate_counts WHERE category = $1 AND ($2::int IS NULL OR problem_id = $2)`
	if _, err := tx.ExecContext(ctx, query, category, sqlNullInt(problemID)); err != nil {
		return fmt.Errorf("pgRatingRepository.DeleteRateCounts: %w", err)
	}
	return nil
}

func (r *pgRatingRepository) InsertRateCount(ctx context.Context, tx *sql.Tx, row *model.RateCount) error {
	query := `INSERT INTO rate_counts (category, problem_id, index, count, score) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, row.Category, row.ProblemID, row.Index, row.Count, row.Score); err != nil {
		return fmt.Errorf("pgRatingRepository.InsertRateCount: %w", err)
	}
	return nil
}

// ScoreCandidates aggregates, per (user, problem, test case), the earliest
// accepted done challenge of a category user on a category problem, joined
// against the effective deadline and the available base scores. The rate
// count score is NULL when the count pass produced no row, and the weight
// score is NULL when the problem's definition carries no such test.
func (r *pgRatingRepository) ScoreCandidates(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) ([]ScoreCandidate, error) {
	query := `
		SELECT q.user_id, q.problem_id, q.index, q.achieved_at, d.deadline, rc.score, tw.score
		FROM (
		    SELECT c.user_id, c.problem_id, s.index, MIN(c.submitted_at) AS achieved_at
		    FROM challenges c
		    JOIN subtasks s ON s.challenge_id = c.id
		    JOIN users u ON u.id = c.user_id
		    WHERE u.category = $1
		      AND c.state = $3
		      AND s.result = $4
		      AND ($2::int IS NULL OR c.problem_id = $2)
		    GROUP BY c.user_id, c.problem_id, s.index
		) q
		JOIN (
		    SELECT pi.problem_id, MAX(pi.deadline) AS deadline
		    FROM proitems pi
		    JOIN prosets ps ON ps.id = pi.proset_id
		    WHERE ps.category = $1 AND pi.hidden = FALSE
		    GROUP BY pi.problem_id
		) d ON d.problem_id = q.problem_id
		LEFT JOIN rate_counts rc
		    ON rc.category = $1 AND rc.problem_id = q.problem_id AND rc.index = q.index
		LEFT JOIN test_weights tw
		    ON tw.problem_id = q.problem_id AND tw.index = q.index`

	rows, err := tx.QueryContext(ctx, query, category, sqlNullInt(problemID), model.StateDone, model.ResultAC)
	if err != nil {
		return nil, fmt.Errorf("pgRatingRepository.ScoreCandidates: %w", err)
	}
	defer rows.Close()

	var candidates []ScoreCandidate
	for rows.Next() {
		var c ScoreCandidate
		var deadline sql.NullTime
		var countScore, weightScore sql.NullInt64
		if err := rows.Scan(&c.UserID, &c.ProblemID, &c.Index, &c.AchievedAt, &deadline, &countScore, &weightScore); err != nil {
			return nil, fmt.Errorf("pgRatingRepository.ScoreCandidates scan: %w", err)
		}
		if deadline.Valid {
			t := deadline.Time
			c.Deadline = &t
		}
		if countScore.Valid {
			v := int(countScore.Int64)
			c.CountScore = &v
		}
		if weightScore.Valid {
			v := int(weightScore.Int64)
			c.WeightScore = &v
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *pgRatingRepository) DeleteRateScores(ctx context.Context, tx *sql.Tx, category model.Category, problemID *int) error {
	query := `DELETE FROM rate_scores WHERE category = $1 AND ($2::int IS NULL OR problem_id = $2)`
	if _, err := tx.ExecContext(ctx, query, category, sqlNullInt(problemID)); err != nil {
		return fmt.Errorf("pgRatingRepository.DeleteRateScores: %w", err)
	}
	return nil
}

func (r *pgRatingRepository) InsertRateScore(ctx context.Context, tx *sql.Tx, row *model.RateScore) error {
	query := `INSERT INTO rate_scores (category, user_id, problem_id, index, score) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, row.Category, row.UserID, row.ProblemID, row.Index, row.Score); err != nil {
		return fmt.Errorf("pgRatingRepository.InsertRateScore: %w", err)
	}
	return nil
}

// ProblemInCategory reports whether the problem is placed in any problem set
// tagged with the category.
func (r *pgRatingRepository) ProblemInCategory(ctx context.Context, category model.Category, problemID int) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM proitems pi
	              JOIN prosets ps ON ps.id = pi.proset_id
	              WHERE ps.category = $1 AND pi.problem_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, category, problemID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgRatingRepository.ProblemInCategory: %w", err)
	}
	return exists, nil
}

// ProblemRates returns per-test acceptance statistics, substituting count 0
// and the default base score for tests nobody has solved yet.
func (r *pgRatingRepository) ProblemRates(ctx context.Context, category model.Category, problemID int) ([]model.ProblemRate, error) {
	query := `SELECT tw.index, COALESCE(rc.count, 0), COALESCE(rc.score, tw.score * $3)
	          FROM test_weights tw
	          LEFT JOIN rate_counts rc
	              ON rc.category = $1 AND rc.problem_id = tw.problem_id AND rc.index = tw.index
	          WHERE tw.problem_id = $2
	          ORDER BY tw.index`

	rows, err := r.db.QueryContext(ctx, query, category, problemID, model.DefaultScoreFactor)
	if err != nil {
		return nil, fmt.Errorf("pgRatingRepository.ProblemRates: %w", err)
	}
	defer rows.Close()

	var rates []model.ProblemRate
	for rows.Next() {
		var rate model.ProblemRate
		if err := rows.Scan(&rate.Index, &rate.Count, &rate.Score); err != nil {
			return nil, fmt.Errorf("pgRatingRepository.ProblemRates scan: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

// UserScore sums the user's rate scores, optionally narrowed to one problem
// (problemID > 0) or to the problems of one problem set (prosetID > 0).
func (r *pgRatingRepository) UserScore(ctx context.Context, category model.Category, userID string, problemID, prosetID int) (int, error) {
	query := `SELECT COALESCE(SUM(score), 0) FROM rate_scores
	          WHERE category = $1 AND user_id = $2
	            AND ($3::int = 0 OR problem_id = $3)
	            AND ($4::int = 0 OR problem_id IN (SELECT problem_id FROM proitems WHERE proset_id = $4))`

	var total int
	if err := r.db.QueryRowContext(ctx, query, category, userID, problemID, prosetID).Scan(&total); err != nil {
		return 0, fmt.Errorf("pgRatingRepository.UserScore: %w", err)
	}
	return total, nil
}

func (r *pgRatingRepository) Leaderboard(ctx context.Context, category model.Category, limit int) ([]model.RankEntry, error) {
	query := `SELECT rs.user_id, u.username, SUM(rs.score) AS total
	          FROM rate_scores rs
	          JOIN users u ON u.id = rs.user_id
	          WHERE rs.category = $1
	          GROUP BY rs.user_id, u.username
	          ORDER BY total DESC, u.username
	          LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("pgRatingRepository.Leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.RankEntry
	for rows.Next() {
		var e model.RankEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score); err != nil {
			return nil, fmt.Errorf("pgRatingRepository.Leaderboard scan: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func sqlNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
