package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code_arena/internal/common"
	"code_arena/internal/common/security"
	"code_arena/internal/domain/model"
	"code_arena/internal/platform/config"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{
		JWTKey: []byte("test-secret"),
		JWTExp: time.Hour,
	}
	security.InitJWT()
	m.Run()
}

// mockUserRepository implements repository.UserRepository for testing
type mockUserRepository struct {
	createFunc         func(ctx context.Context, user *model.User) error
	findByEmailFunc    func(ctx context.Context, email string) (*model.User, error)
	findByUsernameFunc func(ctx context.Context, username string) (*model.User, error)
	findByIDFunc       func(ctx context.Context, id string) (*model.User, error)
	listFunc           func(ctx context.Context) ([]model.User, error)
	updateFunc         func(ctx context.Context, user *model.User) error
	deleteFunc         func(ctx context.Context, id string) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) List(ctx context.Context) ([]model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserRepository) Update(ctx context.Context, user *model.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("new users start outside every rated pool", func(t *testing.T) {
		repo := &mockUserRepository{}
		var created *model.User
		repo.createFunc = func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		}

		service := NewAuthService(repo)
		resp, err := service.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter2"})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, model.CategoryUniverse, created.Category)
		assert.Equal(t, model.RoleUser, created.Role)
		assert.NotEmpty(t, resp.Token)
		assert.Empty(t, resp.User.HashedPassword)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		service := NewAuthService(&mockUserRepository{})
		_, err := service.Signup(ctx, SignupRequest{Username: "alice"})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("duplicate user surfaces the conflict", func(t *testing.T) {
		repo := &mockUserRepository{}
		repo.createFunc = func(ctx context.Context, user *model.User) error {
			return common.ErrConflict
		}

		service := NewAuthService(repo)
		_, err := service.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "hunter2"})
		assert.ErrorIs(t, err, common.ErrConflict)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hashed, err := security.HashPassword("hunter2")
	require.NoError(t, err)
	stored := &model.User{ID: "u1", Username: "alice", Email: "alice@example.com", HashedPassword: hashed, Role: model.RoleUser}

	t.Run("by email", func(t *testing.T) {
		repo := &mockUserRepository{}
		repo.findByEmailFunc = func(ctx context.Context, email string) (*model.User, error) {
			u := *stored
			return &u, nil
		}

		service := NewAuthService(repo)
		resp, err := service.Login(ctx, LoginRequest{LoginField: "alice@example.com", Password: "hunter2"})
		require.NoError(t, err)
		assert.Equal(t, "u1", resp.User.ID)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("falls back to username lookup", func(t *testing.T) {
		repo := &mockUserRepository{}
		repo.findByEmailFunc = func(ctx context.Context, email string) (*model.User, error) {
			return nil, common.ErrNotFound
		}
		repo.findByUsernameFunc = func(ctx context.Context, username string) (*model.User, error) {
			u := *stored
			return &u, nil
		}

		service := NewAuthService(repo)
		resp, err := service.Login(ctx, LoginRequest{LoginField: "alice", Password: "hunter2"})
		require.NoError(t, err)
		assert.Equal(t, "u1", resp.User.ID)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		repo := &mockUserRepository{}
		repo.findByEmailFunc = func(ctx context.Context, email string) (*model.User, error) {
			u := *stored
			return &u, nil
		}

		service := NewAuthService(repo)
		_, err := service.Login(ctx, LoginRequest{LoginField: "alice@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("unknown user is unauthorized, not not-found", func(t *testing.T) {
		repo := &mockUserRepository{}
		repo.findByEmailFunc = func(ctx context.Context, email string) (*model.User, error) {
			return nil, common.ErrNotFound
		}
		repo.findByUsernameFunc = func(ctx context.Context, username string) (*model.User, error) {
			return nil, common.ErrNotFound
		}

		service := NewAuthService(repo)
		_, err := service.Login(ctx, LoginRequest{LoginField: "ghost", Password: "hunter2"})
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})
}
