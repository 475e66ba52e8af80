package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/teamtempo/tempo/internal/domain"
	"github.com/teamtempo/tempo/internal/repository"
	"github.com/teamtempo/tempo/pkg/config"
	"github.com/teamtempo/tempo/pkg/crypto"
	jwtpkg "github.com/teamtempo/tempo/pkg/jwt"
)

const minPasswordLength = 8

var (
	// ErrInvalid wraps signup validation failures.
	ErrInvalid = errors.New("invalid signup")
	// ErrInvalidCredentials is returned for unknown emails, wrong passwords
	// and rejected tokens alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDisabled is returned when a disabled account tries to log in.
	ErrDisabled = errors.New("account is disabled")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// Service handles authentication workflows.
type Service struct {
	users   repository.UserRepository
	logger  *slog.Logger
	cfg     config.APIConfig
	revoked *revocations
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg, revoked: newRevocations()}
}

// SignupInput carries the attributes of a new account.
type SignupInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// Signup registers a new, enabled user.
func (s Service) Signup(ctx context.Context, input SignupInput) (*domain.User, TokenPair, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FullName == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: full name is required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, TokenPair{}, fmt.Errorf("%w: email is not valid", ErrInvalid)
	}
	if len(input.Password) < minPasswordLength {
		return nil, TokenPair{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalid, minPasswordLength)
	}
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: hash,
		Enabled:      true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, err
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("login for unknown email")
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if !user.Enabled {
		s.logger.Warn("login for disabled user", "user_id", user.ID)
		return nil, TokenPair{}, ErrDisabled
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("password mismatch", "user_id", user.ID)
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	tokens, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Logout revokes an access token until it expires.
func (s Service) Logout(ctx context.Context, token string) error {
	claims, err := jwtpkg.ParseKind(strings.TrimSpace(token), s.cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		return ErrInvalidCredentials
	}
	expires := time.Now().Add(s.cfg.AccessTokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	s.revoked.add(claims.ID, expires)
	s.logger.Info("user logged out", "user_id", claims.UserID)
	return nil
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, ErrInvalidCredentials
	}
	claims, err := jwtpkg.ParseKind(trimmed, s.cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if s.revoked.contains(claims.ID) {
		return nil, nil, fmt.Errorf("%w: token revoked", ErrInvalidCredentials)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.Enabled {
		return nil, nil, ErrDisabled
	}
	return user, claims, nil
}

func (s Service) issueTokens(userID string) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(userID, jwtpkg.KindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(userID, jwtpkg.KindRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL}, nil
}

// revocations remembers logged-out token ids until they would have expired.
type revocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func newRevocations() *revocations {
	return &revocations{ids: make(map[string]time.Time)}
}

func (r *revocations) add(id string, expires time.Time) {
	if r == nil || id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for k, exp := range r.ids {
		if now.After(exp) {
			delete(r.ids, k)
		}
	}
	r.ids[id] = expires
}

func (r *revocations) contains(id string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.ids[id]
	return ok && time.Now().Before(exp)
}
