package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code_arena/internal/common"
	"code_arena/internal/domain/model"
)

// mockProSetRepository implements repository.ProSetRepository for testing
type mockProSetRepository struct {
	createFunc       func(ctx context.Context, proset *model.ProSet) error
	findByIDFunc     func(ctx context.Context, id int) (*model.ProSet, error)
	listFunc         func(ctx context.Context) ([]model.ProSet, error)
	updateFunc       func(ctx context.Context, proset *model.ProSet) error
	deleteFunc       func(ctx context.Context, id int) error
	addItemFunc      func(ctx context.Context, item *model.ProItem) error
	findItemByIDFunc func(ctx context.Context, id int) (*model.ProItem, error)
	listItemsFunc    func(ctx context.Context, prosetID int) ([]model.ProItem, error)
	updateItemFunc   func(ctx context.Context, item *model.ProItem) error
	removeItemFunc   func(ctx context.Context, id int) error
}

func (m *mockProSetRepository) Create(ctx context.Context, proset *model.ProSet) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, proset)
	}
	return errors.New("not implemented")
}

func (m *mockProSetRepository) FindByID(ctx context.Context, id int) (*model.ProSet, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProSetRepository) List(ctx context.Context) ([]model.ProSet, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProSetRepository) Update(ctx context.Context, proset *model.ProSet) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, proset)
	}
	return errors.New("not implemented")
}

func (m *mockProSetRepository) Delete(ctx context.Context, id int) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockProSetRepository) AddItem(ctx context.Context, item *model.ProItem) error {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, item)
	}
	return errors.New("not implemented")
}

func (m *mockProSetRepository) FindItemByID(ctx context.Context, id int) (*model.ProItem, error) {
	if m.findItemByIDFunc != nil {
		return m.findItemByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProSetRepository) ListItems(ctx context.Context, prosetID int) ([]model.ProItem, error) {
	if m.listItemsFunc != nil {
		return m.listItemsFunc(ctx, prosetID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockProSetRepository) UpdateItem(ctx context.Context, item *model.ProItem) error {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, item)
	}
	return errors.New("not implemented")
}

func (m *mockProSetRepository) RemoveItem(ctx context.Context, id int) error {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func TestProSetService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	deadline := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	newService := func(t *testing.T, prosetRepo *mockProSetRepository) (*ProSetService, sqlmock.Sqlmock) {
		ratingService, mock := newRatingServiceWithMock(t)
		return NewProSetService(prosetRepo, &mockProblemRepository{}, ratingService), mock
	}

	t.Run("clear_deadline removes the deadline", func(t *testing.T) {
		prosetRepo := &mockProSetRepository{}
		prosetRepo.findItemByIDFunc = func(ctx context.Context, id int) (*model.ProItem, error) {
			return &model.ProItem{ID: id, ProSetID: 1, ProblemID: 42, Deadline: &deadline}, nil
		}
		var saved *model.ProItem
		prosetRepo.updateItemFunc = func(ctx context.Context, item *model.ProItem) error {
			saved = item
			return nil
		}

		service, mock := newService(t, prosetRepo)
		expectEmptyScopeRefresh(mock, model.CategoryClang, 42)
		expectEmptyScopeRefresh(mock, model.CategoryPylang, 42)

		item, err := service.UpdateItem(ctx, 5, UpdateItemRequest{ClearDeadline: true})
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Nil(t, saved.Deadline)
		assert.Nil(t, item.Deadline)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent deadline field leaves the deadline alone", func(t *testing.T) {
		prosetRepo := &mockProSetRepository{}
		prosetRepo.findItemByIDFunc = func(ctx context.Context, id int) (*model.ProItem, error) {
			return &model.ProItem{ID: id, ProSetID: 1, ProblemID: 42, Deadline: &deadline}, nil
		}
		var saved *model.ProItem
		prosetRepo.updateItemFunc = func(ctx context.Context, item *model.ProItem) error {
			saved = item
			return nil
		}

		service, mock := newService(t, prosetRepo)
		expectEmptyScopeRefresh(mock, model.CategoryClang, 42)
		expectEmptyScopeRefresh(mock, model.CategoryPylang, 42)

		hidden := true
		_, err := service.UpdateItem(ctx, 5, UpdateItemRequest{Hidden: &hidden})
		require.NoError(t, err)
		require.NotNil(t, saved)
		require.NotNil(t, saved.Deadline)
		assert.Equal(t, deadline, *saved.Deadline)
		assert.True(t, saved.Hidden)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deadline and clear_deadline together are rejected", func(t *testing.T) {
		service, mock := newService(t, &mockProSetRepository{})

		_, err := service.UpdateItem(ctx, 5, UpdateItemRequest{Deadline: &deadline, ClearDeadline: true})
		require.ErrorIs(t, err, common.ErrBadRequest)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
