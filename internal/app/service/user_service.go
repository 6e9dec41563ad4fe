package service

import (
	"context"
	"fmt"
	"log"

	"code_arena/internal/common"
	"code_arena/internal/common/security"
	"code_arena/internal/domain/model"
	"code_arena/internal/domain/repository"
)

type UserService struct {
	userRepo      repository.UserRepository
	ratingService *RatingService
}

func NewUserService(userRepo repository.UserRepository, ratingService *RatingService) *UserService {
	return &UserService{userRepo: userRepo, ratingService: ratingService}
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].HashedPassword = ""
	}
	return users, nil
}

type UpdateUserRequest struct {
	Username *string         `json:"username,omitempty"`
	Password *string         `json:"password,omitempty"`
	Category *model.Category `json:"category,omitempty"` // Admin only
}

// UpdateUser applies profile changes. A category move invalidates acceptance
// counts in both the old and new pool, so it re-triggers aggregation for both.
func (s *UserService) UpdateUser(ctx context.Context, id string, isAdmin bool, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldCategory := user.Category

	if req.Username != nil && *req.Username != "" {
		user.Username = *req.Username
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed
	}
	if req.Category != nil {
		if !isAdmin {
			return nil, common.Errorf("only admins may move users between categories: %w", common.ErrForbidden)
		}
		user.Category = *req.Category
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.ratingService.OnCategoryChanged(ctx, oldCategory, user.Category); err != nil {
		return nil, common.Errorf("user updated but rating refresh failed: %w", err)
	}

	user.HashedPassword = ""
	return user, nil
}

// RemoveUser deletes the user and recomputes their former pool, since their
// acceptances no longer count toward anyone's difficulty weighting.
func (s *UserService) RemoveUser(ctx context.Context, id string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("User %s removed.", id)

	return s.ratingService.OnCategoryChanged(ctx, user.Category, model.CategoryUniverse)
}

// GetUserScore returns the user's aggregate competitive score, optionally
// narrowed to one problem or one problem set.
func (s *UserService) GetUserScore(ctx context.Context, id string, problemID, prosetID int) (int, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.ratingService.GetUserScore(ctx, user, problemID, prosetID)
}
