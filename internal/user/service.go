package user

import (
	"context"
	"errors"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"
	"storefront-be/internal/validation"

	"go.uber.org/zap"
)

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	GetByID(ctx context.Context, id uint) (*User, error)
}

type service struct {
	repo   Repository
	tokens TokenIssuer
}

func NewService(repo Repository, tokens TokenIssuer) Service {
	return &service{repo: repo, tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = normalizeEmail(input.Email)
	input.Phone = strings.ReplaceAll(strings.TrimSpace(input.Phone), " ", "")
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, apperror.Wrap(err, "user.Register")
	}

	u, err := s.repo.Create(ctx, &User{
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hashed,
		Phone:        input.Phone,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, apperror.Wrap(err, "user.Register")
	}

	res, err := s.issue(u)
	if err != nil {
		log.Error("failed to generate jwt", zap.Uint("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	log.Info("user registered", zap.Uint("user_id", u.ID))
	return res, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	input.Email = normalizeEmail(input.Email)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	u, err := s.repo.FindActiveByEmail(ctx, input.Email)
	if errors.Is(err, ErrUserNotFound) {
		log.Info("login failed: unknown or inactive email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperror.Wrap(err, "user.Login")
	}

	if !CheckPasswordHash(input.Password, u.PasswordHash) {
		log.Info("login failed: password mismatch", zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	return s.issue(u)
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, "user.GetByID")
	}
	return u, nil
}

func (s *service) issue(u *User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Generate(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, apperror.Wrap(err, "user.issue")
	}
	return &AuthResult{User: u, AccessToken: token, ExpiresAt: expiresAt}, nil
}
