package service

import (
	"context"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// AuthService registers users, exchanges credentials for bearer tokens and
// revokes them on logout.
type AuthService struct {
	userRepo    repository.UserRepository
	hasher      *auth.Hasher
	tokens      *auth.TokenManager
	cache       *cache.Cache
	revocations *cache.RevocationStore
}

type RegisterInput struct {
	Email     string
	FullName  string
	Password  string
	AvatarURL string
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	c *cache.Cache,
	revocations *cache.RevocationStore,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		hasher:      hasher,
		tokens:      tokens,
		cache:       c,
		revocations: revocations,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (resp *models.AuthResponse, err error) {
	defer func() { recordAttempt("register", err) }()

	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	avatarURL := strings.TrimSpace(in.AvatarURL)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateFullName(fullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateOptionalURL(avatarURL, validation.ErrAvatarURL); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:        email,
		FullName:     fullName,
		AvatarURL:    avatarURL,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.respond(user)
}

// Login answers NOT_FOUND for an unknown e-mail and VALIDATION_ERROR with
// MsgBadCredentials for a wrong password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (resp *models.AuthResponse, err error) {
	defer func() { recordAttempt("login", err) }()

	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		return nil, models.NewValidationError(models.MsgBadCredentials)
	}

	return s.respond(user)
}

// Me returns the profile of userID, served from cache when possible.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.cache.Aside(ctx, cache.UserKey(userID), &user, cache.UserTTL, func() error {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		user = *u
		user.PasswordHash = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the token described by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return models.NewInternalError(err)
	}
	if userID, err := claims.SubjectID(); err == nil {
		s.cache.Invalidate(ctx, cache.UserKey(userID))
	}
	return nil
}

func (s *AuthService) respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.AuthResponse{User: user, Token: token}, nil
}

func recordAttempt(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = strings.ToLower(models.ErrorCode(err))
	}
	observability.AuthAttempts.WithLabelValues(action, outcome).Inc()
}
