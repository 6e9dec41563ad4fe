package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
	"code_arena/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RatingService recomputes the derived rating tables from the challenge log.
// Each pass (count, then score) runs as one transaction that replaces the
// whole (category[, problem]) scope, so readers never observe a partially
// rewritten scope. Passes for the same category are serialized through a
// redis lock; disjoint categories may recompute concurrently.
type RatingService struct {
	ratingRepo repository.RatingRepository
	rdb        *redis.Client
	db         *sql.DB
}

func NewRatingService(ratingRepo repository.RatingRepository, rdb *redis.Client, db *sql.DB) *RatingService {
	return &RatingService{ratingRepo: ratingRepo, rdb: rdb, db: db}
}

// RefreshAll rebuilds the rating tables of every rated category from scratch.
func (s *RatingService) RefreshAll(ctx context.Context) error {
	for _, category := range model.RatedCategories() {
		if err := s.refreshScope(ctx, category, nil, false); err != nil {
			return fmt.Errorf("refresh of category %s failed: %w", category, err)
		}
	}
	return nil
}

// OnCategoryChanged recomputes both pools a user (or problem set) moved
// between. Acceptance counts in the old pool shrink and counts in the new
// pool grow, so both sides need a full per-category rebuild.
func (s *RatingService) OnCategoryChanged(ctx context.Context, oldCategory, newCategory model.Category) error {
	if oldCategory == newCategory {
		return nil
	}
	if oldCategory.Rated() {
		if err := s.refreshScope(ctx, oldCategory, nil, false); err != nil {
			return fmt.Errorf("refresh of old category %s failed: %w", oldCategory, err)
		}
	}
	if newCategory.Rated() {
		if err := s.refreshScope(ctx, newCategory, nil, false); err != nil {
			return fmt.Errorf("refresh of new category %s failed: %w", newCategory, err)
		}
	}
	return nil
}

// OnProblemChanged recomputes the problem's scope in every rated category.
// The weight table is global, so when the problem's content changed it is
// rebuilt once with the first category's count pass rather than once per
// category.
func (s *RatingService) OnProblemChanged(ctx context.Context, problemID int, contentChanged bool) error {
	rebuildWeights := contentChanged
	for _, category := range model.RatedCategories() {
		if err := s.refreshScope(ctx, category, &problemID, rebuildWeights); err != nil {
			return fmt.Errorf("refresh of problem %d in category %s failed: %w", problemID, category, err)
		}
		rebuildWeights = false
	}
	return nil
}

// refreshScope runs the count pass then the score pass for one scope under
// the category's lock. The score pass reads the count pass's committed rows,
// so the order is fixed.
func (s *RatingService) refreshScope(ctx context.Context, category model.Category, problemID *int, rebuildWeights bool) error {
	release, err := s.lockCategory(ctx, category)
	if err != nil {
		return err
	}
	defer release()

	if err := s.updateRateCount(ctx, category, problemID, rebuildWeights); err != nil {
		return err
	}
	return s.updateRateScore(ctx, category, problemID)
}

// updateRateCount is the count pass: replace the scope's acceptance-count
// rows with freshly aggregated ones, optionally rebuilding the weight table
// first inside the same transaction.
func (s *RatingService) updateRateCount(ctx context.Context, category model.Category, problemID *int, rebuildWeights bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin count pass transaction: %w", err)
	}
	defer tx.Rollback()

	if rebuildWeights {
		if err := s.ratingRepo.RebuildTestWeights(ctx, tx); err != nil {
			return common.Errorf("failed to rebuild test weights: %w", err)
		}
	}

	counts, err := s.ratingRepo.AcceptedCounts(ctx, tx, category, problemID)
	if err != nil {
		return common.Errorf("failed to aggregate acceptance counts: %w", err)
	}

	if err := s.ratingRepo.DeleteRateCounts(ctx, tx, category, problemID); err != nil {
		return common.Errorf("failed to clear acceptance counts: %w", err)
	}

	for _, c := range counts {
		row := &model.RateCount{
			Category:  category,
			ProblemID: c.ProblemID,
			Index:     c.Index,
			Count:     c.Count,
			Score:     model.AcceptanceScore(c.WeightScore, c.Count),
		}
		if err := s.ratingRepo.InsertRateCount(ctx, tx, row); err != nil {
			return common.Errorf("failed to store acceptance count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit count pass: %w", err)
	}
	return nil
}

// updateRateScore is the score pass: replace the scope's user-score rows.
// The base value is the acceptance-count score when one exists, otherwise the
// default derived from the weight table; candidates with neither contribute
// nothing. Rows are only persisted when the late-penalized score stays
// positive.
func (s *RatingService) updateRateScore(ctx context.Context, category model.Category, problemID *int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin score pass transaction: %w", err)
	}
	defer tx.Rollback()

	candidates, err := s.ratingRepo.ScoreCandidates(ctx, tx, category, problemID)
	if err != nil {
		return common.Errorf("failed to aggregate score candidates: %w", err)
	}

	if err := s.ratingRepo.DeleteRateScores(ctx, tx, category, problemID); err != nil {
		return common.Errorf("failed to clear user scores: %w", err)
	}

	for _, c := range candidates {
		base := 0
		switch {
		case c.CountScore != nil:
			base = *c.CountScore
		case c.WeightScore != nil:
			base = *c.WeightScore * model.DefaultScoreFactor
		}

		score := model.EarnedScore(base, model.LateRatio(c.Deadline, c.AchievedAt))
		if score <= 0 {
			continue
		}

		row := &model.RateScore{
			Category:  category,
			UserID:    c.UserID,
			ProblemID: c.ProblemID,
			Index:     c.Index,
			Score:     score,
		}
		if err := s.ratingRepo.InsertRateScore(ctx, tx, row); err != nil {
			return common.Errorf("failed to store user score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit score pass: %w", err)
	}
	return nil
}

// GetProblemRate returns per-test acceptance statistics for the problem in
// the category, or ErrNotFound when no problem set of the category contains
// the problem.
func (s *RatingService) GetProblemRate(ctx context.Context, category model.Category, problemID int) ([]model.ProblemRate, error) {
	ok, err := s.ratingRepo.ProblemInCategory(ctx, category, problemID)
	if err != nil {
		return nil, common.Errorf("failed to check problem membership: %w", err)
	}
	if !ok {
		return nil, common.Errorf("problem %d is not rated in category %s: %w", problemID, category, common.ErrNotFound)
	}
	return s.ratingRepo.ProblemRates(ctx, category, problemID)
}

// GetUserScore sums the user's earned scores in their own category,
// optionally narrowed to one problem or one problem set. Users outside every
// rated pool always score zero.
func (s *RatingService) GetUserScore(ctx context.Context, user *model.User, problemID, prosetID int) (int, error) {
	if !user.Category.Rated() {
		return 0, nil
	}
	return s.ratingRepo.UserScore(ctx, user.Category, user.ID, problemID, prosetID)
}

func (s *RatingService) Leaderboard(ctx context.Context, category model.Category, limit int) ([]model.RankEntry, error) {
	if !category.Rated() {
		return nil, common.Errorf("category %s is not ranked: %w", category, common.ErrBadRequest)
	}
	return s.ratingRepo.Leaderboard(ctx, category, limit)
}

var releaseLockScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// lockCategory serializes recomputation of one category across processes.
// The lock is polled rather than failed fast because triggers are synchronous
// and short-lived. Without a redis client (unit tests) locking is skipped;
// transaction-level row locking on the scope still protects the tables.
func (s *RatingService) lockCategory(ctx context.Context, category model.Category) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("%s:%d", config.AppConfig.RatingLockKey, category)
	value := uuid.NewString()
	ttl := time.Duration(config.AppConfig.RatingLockTTLSeconds) * time.Second

	for {
		ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
		if err != nil {
			return nil, common.Errorf("failed to acquire lock for category %s: %w", category, common.ErrScopeLockFailed)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, common.Errorf("gave up waiting for lock on category %s: %w", category, common.ErrScopeLockFailed)
		case <-time.After(100 * time.Millisecond):
		}
	}

	release := func() {
		deleted, err := releaseLockScript.Run(context.Background(), s.rdb, []string{key}, value).Result()
		if err != nil {
			log.Printf("ERROR: Failed to release rating lock %s: %v", key, err)
		} else if deleted.(int64) != 1 {
			log.Printf("WARN: Rating lock %s expired before release.", key)
		}
	}
	return release, nil
}
