package authService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/data/repository"
	"github.com/KotFed0t/crypto_portfolio_api/internal/auth"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoStub struct {
	createUserFn        func(ctx context.Context, username, email, passwordHash string) (int64, error)
	getUserByUsernameFn func(ctx context.Context, username string) (model.User, error)
	getUserByIDFn       func(ctx context.Context, userID int64) (model.User, error)
	updateUserFn        func(ctx context.Context, userID int64, email, passwordHash *string) error
	deleteUserFn        func(ctx context.Context, userID int64) error
}

func (s *repoStub) CreateUser(ctx context.Context, username, email, passwordHash string) (int64, error) {
	return s.createUserFn(ctx, username, email, passwordHash)
}

func (s *repoStub) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	return s.getUserByUsernameFn(ctx, username)
}

func (s *repoStub) GetUserByID(ctx context.Context, userID int64) (model.User, error) {
	return s.getUserByIDFn(ctx, userID)
}

func (s *repoStub) UpdateUser(ctx context.Context, userID int64, email, passwordHash *string) error {
	return s.updateUserFn(ctx, userID, email, passwordHash)
}

func (s *repoStub) DeleteUser(ctx context.Context, userID int64) error {
	return s.deleteUserFn(ctx, userID)
}

func newTestService(repo *repoStub) *AuthService {
	tokens := auth.NewTokenManager("test-secret", time.Minute)
	return New(&config.Config{}, repo, tokens)
}

func TestRegister(t *testing.T) {
	repo := &repoStub{
		createUserFn: func(_ context.Context, username, email, passwordHash string) (int64, error) {
			assert.Equal(t, "alice", username)
			assert.Equal(t, "alice@example.com", email)
			assert.True(t, auth.CheckPassword("s3cret-password", passwordHash))
			return 42, nil
		},
	}

	user, err := newTestService(repo).Register(context.Background(), "alice", "alice@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)
}

func TestRegisterConflict(t *testing.T) {
	repo := &repoStub{
		createUserFn: func(_ context.Context, _, _, _ string) (int64, error) {
			return 0, repository.ErrAlreadyExists
		},
	}

	_, err := newTestService(repo).Register(context.Background(), "alice", "alice@example.com", "s3cret-password")
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)

	stored := model.User{ID: 42, Username: "alice", PasswordHash: hash, IsActive: true}

	repo := &repoStub{
		getUserByUsernameFn: func(_ context.Context, username string) (model.User, error) {
			if username != "alice" {
				return model.User{}, repository.ErrNotFound
			}
			return stored, nil
		},
	}
	srv := newTestService(repo)

	t.Run("success", func(t *testing.T) {
		token, err := srv.Login(context.Background(), "alice", "s3cret-password")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := srv.Login(context.Background(), "alice", "wrong-password")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := srv.Login(context.Background(), "bob", "s3cret-password")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := stored
		inactive.IsActive = false
		repo.getUserByUsernameFn = func(_ context.Context, _ string) (model.User, error) {
			return inactive, nil
		}
		_, err := srv.Login(context.Background(), "alice", "s3cret-password")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestResolveSession(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)

	stored := model.User{ID: 42, Username: "alice", PasswordHash: hash, IsActive: true}

	repo := &repoStub{
		getUserByUsernameFn: func(_ context.Context, username string) (model.User, error) {
			if username != "alice" {
				return model.User{}, repository.ErrNotFound
			}
			return stored, nil
		},
	}
	srv := newTestService(repo)

	token, err := srv.Login(context.Background(), "alice", "s3cret-password")
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		user, err := srv.ResolveSession(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := srv.ResolveSession(context.Background(), "garbage")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("user deleted after issuance", func(t *testing.T) {
		repo.getUserByUsernameFn = func(_ context.Context, _ string) (model.User, error) {
			return model.User{}, repository.ErrNotFound
		}
		_, err := srv.ResolveSession(context.Background(), token)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestUpdateProfile(t *testing.T) {
	email := "new@example.com"
	password := "new-s3cret-password"

	var gotEmail, gotHash *string
	repo := &repoStub{
		updateUserFn: func(_ context.Context, userID int64, email, passwordHash *string) error {
			assert.Equal(t, int64(42), userID)
			gotEmail, gotHash = email, passwordHash
			return nil
		},
		getUserByIDFn: func(_ context.Context, userID int64) (model.User, error) {
			return model.User{ID: userID, Username: "alice", Email: "new@example.com", IsActive: true}, nil
		},
	}

	user, err := newTestService(repo).UpdateProfile(context.Background(), 42, &email, &password)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	require.NotNil(t, gotEmail)
	assert.Equal(t, email, *gotEmail)
	require.NotNil(t, gotHash)
	assert.True(t, auth.CheckPassword(password, *gotHash))
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	email := "taken@example.com"
	repo := &repoStub{
		updateUserFn: func(_ context.Context, _ int64, _, _ *string) error {
			return repository.ErrAlreadyExists
		},
	}

	_, err := newTestService(repo).UpdateProfile(context.Background(), 42, &email, nil)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestDeleteAccount(t *testing.T) {
	repo := &repoStub{
		deleteUserFn: func(_ context.Context, userID int64) error {
			if userID != 42 {
				return repository.ErrNotFound
			}
			return nil
		},
	}
	srv := newTestService(repo)

	assert.NoError(t, srv.DeleteAccount(context.Background(), 42))
	assert.ErrorIs(t, srv.DeleteAccount(context.Background(), 99), service.ErrNotFound)
}
