package authService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/data/repository"
	"github.com/KotFed0t/crypto_portfolio_api/internal/auth"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
)

type Repository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (userID int64, err error)
	GetUserByUsername(ctx context.Context, username string) (user model.User, err error)
	GetUserByID(ctx context.Context, userID int64) (user model.User, err error)
	UpdateUser(ctx context.Context, userID int64, email, passwordHash *string) (err error)
	DeleteUser(ctx context.Context, userID int64) (err error)
}

type TokenManager interface {
	Issue(subject string) (string, error)
	Verify(tokenString string) (string, error)
}

type AuthService struct {
	cfg    *config.Config
	repo   Repository
	tokens TokenManager
}

func New(cfg *config.Config, repo Repository, tokens TokenManager) *AuthService {
	return &AuthService{cfg: cfg, repo: repo, tokens: tokens}
}

// Register creates an identity. Uniqueness of username and email is decided
// by the storage constraint, a prior existence check would race anyway.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Register"

	slog.Debug("Register start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("Register finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("got error from auth.HashPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	userID, err := s.repo.CreateUser(ctx, username, email, passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, service.ErrConflict
		}
		slog.Error("got error from repo.CreateUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return model.User{ID: userID, Username: username, Email: email, IsActive: true}, nil
}

// Login checks the password and returns an access token. Unknown username
// and wrong password collapse to the same outcome.
func (s *AuthService) Login(ctx context.Context, username, password string) (accessToken string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Login"

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("Login finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	}()

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", service.ErrUnauthorized
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if !user.IsActive || !auth.CheckPassword(password, user.PasswordHash) {
		return "", service.ErrUnauthorized
	}

	accessToken, err = s.tokens.Issue(user.Username)
	if err != nil {
		slog.Error("got error from tokens.Issue", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return accessToken, nil
}

// ResolveSession maps a presented bearer token to the identity it denotes.
// Tokens carry the username as subject.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.ResolveSession"

	slog.Debug("ResolveSession start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ResolveSession finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	subject, err := s.tokens.Verify(token)
	if err != nil {
		return model.User{}, service.ErrUnauthorized
	}

	user, err = s.repo.GetUserByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrUnauthorized
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	if !user.IsActive {
		return model.User{}, service.ErrUnauthorized
	}

	return user, nil
}

// UpdateProfile applies only the provided fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, email, password *string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.UpdateProfile"

	slog.Debug("UpdateProfile start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("UpdateProfile finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	var passwordHash *string
	if password != nil {
		hash, err := auth.HashPassword(*password)
		if err != nil {
			slog.Error("got error from auth.HashPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.User{}, err
		}
		passwordHash = &hash
	}

	err = s.repo.UpdateUser(ctx, userID, email, passwordHash)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return model.User{}, service.ErrConflict
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, service.ErrNotFound
		}
		slog.Error("got error from repo.UpdateUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	user, err = s.repo.GetUserByID(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetUserByID", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return user, nil
}

// DeleteAccount removes the identity; owned portfolios and their
// transactions go with it through the schema cascade.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.DeleteAccount"

	slog.Debug("DeleteAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("DeleteAccount finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	err = s.repo.DeleteUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
