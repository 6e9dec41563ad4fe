package service

import (
	"context"
	"time"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
)

type ProSetService struct {
	prosetRepo    repository.ProSetRepository
	problemRepo   repository.ProblemRepository
	ratingService *RatingService
}

func NewProSetService(prosetRepo repository.ProSetRepository, problemRepo repository.ProblemRepository, ratingService *RatingService) *ProSetService {
	return &ProSetService{prosetRepo: prosetRepo, problemRepo: problemRepo, ratingService: ratingService}
}

type CreateProSetRequest struct {
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Hidden   bool           `json:"hidden"`
}

func (s *ProSetService) CreateProSet(ctx context.Context, req CreateProSetRequest) (*model.ProSet, error) {
	if req.Name == "" {
		return nil, common.ErrBadRequest
	}
	proset := &model.ProSet{Name: req.Name, Category: req.Category, Hidden: req.Hidden}
	if err := s.prosetRepo.Create(ctx, proset); err != nil {
		return nil, err
	}
	return proset, nil
}

func (s *ProSetService) GetProSet(ctx context.Context, id int) (*model.ProSet, error) {
	return s.prosetRepo.FindByID(ctx, id)
}

func (s *ProSetService) ListProSets(ctx context.Context) ([]model.ProSet, error) {
	return s.prosetRepo.List(ctx)
}

type UpdateProSetRequest struct {
	Name     *string         `json:"name,omitempty"`
	Category *model.Category `json:"category,omitempty"`
	Hidden   *bool           `json:"hidden,omitempty"`
}

// UpdateProSet changes set metadata. Re-tagging the set moves every contained
// problem between pools, which is a category-membership change for rating.
func (s *ProSetService) UpdateProSet(ctx context.Context, id int, req UpdateProSetRequest) (*model.ProSet, error) {
	proset, err := s.prosetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldCategory := proset.Category

	if req.Name != nil && *req.Name != "" {
		proset.Name = *req.Name
	}
	if req.Category != nil {
		proset.Category = *req.Category
	}
	if req.Hidden != nil {
		proset.Hidden = *req.Hidden
	}

	if err := s.prosetRepo.Update(ctx, proset); err != nil {
		return nil, err
	}

	if err := s.ratingService.OnCategoryChanged(ctx, oldCategory, proset.Category); err != nil {
		return nil, common.Errorf("problem set updated but rating refresh failed: %w", err)
	}
	return proset, nil
}

// DeleteProSet removes the set and its items, then recomputes the pool that
// just lost those placements.
func (s *ProSetService) DeleteProSet(ctx context.Context, id int) error {
	proset, err := s.prosetRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.prosetRepo.Delete(ctx, id); err != nil {
		return err
	}
	return s.ratingService.OnCategoryChanged(ctx, proset.Category, model.CategoryUniverse)
}

type AddItemRequest struct {
	ProblemID int        `json:"problem_id"`
	Hidden    bool       `json:"hidden"`
	Deadline  *time.Time `json:"deadline,omitempty"`
}

// AddItem places a problem in the set. Only the placed problem's rating scope
// is affected, so the recomputation stays problem-scoped.
func (s *ProSetService) AddItem(ctx context.Context, prosetID int, req AddItemRequest) (*model.ProItem, error) {
	if _, err := s.prosetRepo.FindByID(ctx, prosetID); err != nil {
		return nil, err
	}
	if _, err := s.problemRepo.FindByID(ctx, req.ProblemID); err != nil {
		return nil, err
	}

	item := &model.ProItem{
		ProSetID:  prosetID,
		ProblemID: req.ProblemID,
		Hidden:    req.Hidden,
		Deadline:  req.Deadline,
	}
	if err := s.prosetRepo.AddItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.ratingService.OnProblemChanged(ctx, req.ProblemID, false); err != nil {
		return nil, common.Errorf("item added but rating refresh failed: %w", err)
	}
	return item, nil
}

func (s *ProSetService) ListItems(ctx context.Context, prosetID int) ([]model.ProItem, error) {
	if _, err := s.prosetRepo.FindByID(ctx, prosetID); err != nil {
		return nil, err
	}
	return s.prosetRepo.ListItems(ctx, prosetID)
}

type UpdateItemRequest struct {
	Hidden   *bool      `json:"hidden,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
	// ClearDeadline removes the deadline entirely, since an absent
	// "deadline" field only means "leave it as is".
	ClearDeadline bool `json:"clear_deadline,omitempty"`
}

// UpdateItem adjusts a placement's hidden flag or deadline, both of which
// feed the effective-deadline rule.
func (s *ProSetService) UpdateItem(ctx context.Context, itemID int, req UpdateItemRequest) (*model.ProItem, error) {
	if req.ClearDeadline && req.Deadline != nil {
		return nil, common.ErrBadRequest
	}

	item, err := s.prosetRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if req.Hidden != nil {
		item.Hidden = *req.Hidden
	}
	if req.ClearDeadline {
		item.Deadline = nil
	} else if req.Deadline != nil {
		item.Deadline = req.Deadline
	}

	if err := s.prosetRepo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.ratingService.OnProblemChanged(ctx, item.ProblemID, false); err != nil {
		return nil, common.Errorf("item updated but rating refresh failed: %w", err)
	}
	return item, nil
}

func (s *ProSetService) RemoveItem(ctx context.Context, itemID int) error {
	item, err := s.prosetRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.prosetRepo.RemoveItem(ctx, itemID); err != nil {
		return err
	}
	return s.ratingService.OnProblemChanged(ctx, item.ProblemID, false)
}
