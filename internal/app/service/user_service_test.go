package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
)

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()

	stored := func() *model.User {
		return &model.User{ID: "u1", Username: "alice", Category: model.CategoryClang}
	}

	t.Run("category move is admin only", func(t *testing.T) {
		rating, _ := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return stored(), nil
		}

		service := NewUserService(repo, rating)
		newCat := model.CategoryPylang
		_, err := service.UpdateUser(ctx, "u1", false, UpdateUserRequest{Category: &newCat})
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("category move rebuilds both pools", func(t *testing.T) {
		rating, mock := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return stored(), nil
		}
		var updated *model.User
		repo.updateFunc = func(ctx context.Context, user *model.User) error {
			updated = user
			return nil
		}

		expectEmptyScopeRefresh(mock, model.CategoryClang, nil)
		expectEmptyScopeRefresh(mock, model.CategoryPylang, nil)

		service := NewUserService(repo, rating)
		newCat := model.CategoryPylang
		user, err := service.UpdateUser(ctx, "u1", true, UpdateUserRequest{Category: &newCat})
		require.NoError(t, err)
		assert.Equal(t, model.CategoryPylang, user.Category)
		require.NotNil(t, updated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("category move shifts the member's rows into the new pool", func(t *testing.T) {
		rating, mock := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return stored(), nil
		}
		repo.updateFunc = func(ctx context.Context, user *model.User) error {
			return nil
		}

		deadline := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		// The old pool loses alice's solves: its passes aggregate nothing and
		// only clear out her stale rows.
		expectEmptyScopeRefresh(mock, model.CategoryClang, nil)

		// The new pool now aggregates her solve as its first accepted run.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT q.problem_id, q.index").
			WithArgs(model.CategoryPylang, nil, model.StateDone, model.ResultAC).
			WillReturnRows(sqlmock.NewRows([]string{"problem_id", "index", "count", "score"}).
				AddRow(7, 0, 1, 1000))
		mock.ExpectExec("DELETE FROM rate_counts").
			WithArgs(model.CategoryPylang, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO rate_counts").
			WithArgs(model.CategoryPylang, 7, 0, 1, 4000).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT q.user_id, q.problem_id").
			WithArgs(model.CategoryPylang, nil, model.StateDone, model.ResultAC).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "problem_id", "index", "achieved_at", "deadline", "count_score", "weight_score"}).
				AddRow("u1", 7, 0, deadline.Add(-time.Hour), deadline, 4000, 1000))
		mock.ExpectExec("DELETE FROM rate_scores").
			WithArgs(model.CategoryPylang, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO rate_scores").
			WithArgs(model.CategoryPylang, "u1", 7, 0, 4000).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		service := NewUserService(repo, rating)
		newCat := model.CategoryPylang
		user, err := service.UpdateUser(ctx, "u1", true, UpdateUserRequest{Category: &newCat})
		require.NoError(t, err)
		assert.Equal(t, model.CategoryPylang, user.Category)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("profile-only update leaves the rating tables alone", func(t *testing.T) {
		rating, mock := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return stored(), nil
		}
		repo.updateFunc = func(ctx context.Context, user *model.User) error {
			return nil
		}

		service := NewUserService(repo, rating)
		name := "alicia"
		user, err := service.UpdateUser(ctx, "u1", false, UpdateUserRequest{Username: &name})
		require.NoError(t, err)
		assert.Equal(t, "alicia", user.Username)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserService_RemoveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("removal rebuilds the former pool", func(t *testing.T) {
		rating, mock := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "u1", Category: model.CategoryPylang}, nil
		}
		repo.deleteFunc = func(ctx context.Context, id string) error {
			return nil
		}

		expectEmptyScopeRefresh(mock, model.CategoryPylang, nil)

		service := NewUserService(repo, rating)
		require.NoError(t, service.RemoveUser(ctx, "u1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removing an unrated user touches nothing", func(t *testing.T) {
		rating, mock := newRatingServiceWithMock(t)
		repo := &mockUserRepository{}
		repo.findByIDFunc = func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "u1", Category: model.CategoryUniverse}, nil
		}
		repo.deleteFunc = func(ctx context.Context, id string) error {
			return nil
		}

		service := NewUserService(repo, rating)
		require.NoError(t, service.RemoveUser(ctx, "u1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
