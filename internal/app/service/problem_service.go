package service

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"

	"github.com/gosimple/slug"
)

type ProblemService struct {
	problemRepo   repository.ProblemRepository
	ratingService *RatingService
	db            *sql.DB
}

func NewProblemService(problemRepo repository.ProblemRepository, ratingService *RatingService, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, ratingService: ratingService, db: db}
}

type UpsertProblemRequest struct {
	Name          string              `json:"name"`
	Revision      string              `json:"revision"`
	BaseScore     int                 `json:"base_score"`
	TimeLimitMs   int                 `json:"time_limit_ms"`
	MemoryLimitKb int                 `json:"memory_limit_kb"`
	Tests         []model.ProblemTest `json:"tests"`
}

// UpsertProblem creates or replaces a problem definition under its stable
// numeric ID, then recomputes the problem's rating scope. The weight table is
// only rebuilt when the revision actually changed.
func (s *ProblemService) UpsertProblem(ctx context.Context, id int, req UpsertProblemRequest) (*model.Problem, error) {
	if id <= 0 || req.Name == "" || req.Revision == "" {
		return nil, common.ErrBadRequest
	}
	for _, test := range req.Tests {
		if test.Weight < 0 || test.Weight > 100 {
			return nil, common.Errorf("test weight must be within 0..100: %w", common.ErrValidation)
		}
	}

	contentChanged := true
	if existing, err := s.problemRepo.FindByID(ctx, id); err == nil {
		contentChanged = existing.Revision != req.Revision
	}

	problem := &model.Problem{
		ID:            id,
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		Revision:      req.Revision,
		BaseScore:     req.BaseScore,
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitKb: req.MemoryLimitKb,
		Tests:         req.Tests,
	}
	if problem.BaseScore <= 0 {
		problem.BaseScore = 500
	}

	if err := s.problemRepo.Upsert(ctx, nil, problem); err != nil {
		return nil, common.Errorf("failed to store problem: %w", err)
	}

	if err := s.ratingService.OnProblemChanged(ctx, id, contentChanged); err != nil {
		return nil, common.Errorf("problem update failed: %w", err)
	}

	log.Printf("Problem %d stored (revision %s, content changed: %v).", id, req.Revision, contentChanged)
	return problem, nil
}

func (s *ProblemService) GetProblem(ctx context.Context, id int) (*model.Problem, error) {
	return s.problemRepo.FindByID(ctx, id)
}

// GetProblemWithRate attaches per-test acceptance statistics for the viewing
// user's category. Problems outside the user's pool come back without rates.
func (s *ProblemService) GetProblemWithRate(ctx context.Context, id int, category model.Category) (*model.Problem, []model.ProblemRate, error) {
	problem, err := s.problemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !category.Rated() {
		return problem, nil, nil
	}

	rates, err := s.ratingService.GetProblemRate(ctx, category, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return problem, nil, nil
		}
		return nil, nil, err
	}
	return problem, rates, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, startID, limit int) ([]model.Problem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.problemRepo.List(ctx, startID, limit)
}

// DeleteProblem removes the problem. Dependent challenge, weight and rating
// rows are dropped by the schema's cascades.
func (s *ProblemService) DeleteProblem(ctx context.Context, id int) error {
	return s.problemRepo.Delete(ctx, id)
}
