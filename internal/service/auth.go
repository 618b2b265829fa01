package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/metrics"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
)

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one verification.
const dummyPassword = "moneytrail-login-timing"

// AuthConfig holds AuthService dependencies.
type AuthConfig struct {
	Users        UserStore
	Hasher       Hasher
	Tokens       *auth.TokenManager
	Cache        IdentityCache // optional
	StoreTimeout time.Duration
	CacheTTL     time.Duration
	Metrics      metrics.Recorder
	Logger       *slog.Logger
}

// AuthService handles signup, login and session authentication.
type AuthService struct {
	users        UserStore
	hasher       Hasher
	tokens       *auth.TokenManager
	cache        IdentityCache
	storeTimeout time.Duration
	cacheTTL     time.Duration
	metrics      metrics.Recorder
	logger       *slog.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AuthService{
		users:        cfg.Users,
		hasher:       cfg.Hasher,
		tokens:       cfg.Tokens,
		cache:        cfg.Cache,
		storeTimeout: cfg.StoreTimeout,
		cacheTTL:     cfg.CacheTTL,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// SignupInput defines input for creating an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates a user with a hashed password.
// Returns ErrEmailTaken when the email is already registered.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	existing, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	digest, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.users.CreateUser(storeCtx, user); err != nil {
		// Lost a race with a concurrent signup for the same email
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncSignup()

	return user, nil
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Login checks credentials and issues a session token.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.findUser(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	if user == nil {
		s.burnVerify(ctx, password)
		s.metrics.IncLogin(false)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin(false)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(true)

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a session token to the identity of its user.
// Returns ErrNoToken, ErrInvalidToken or ErrUserGone for rejected sessions;
// any other error is an infrastructure failure.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	userID := claims.UserID()

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	// A cached identity may outlive its user when the account was removed
	// by a process that cannot reach this cache, so existence is always checked.
	if identity := s.cachedIdentity(ctx, userID); identity != nil {
		exists, err := s.users.UserExists(storeCtx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check user: %w", err)
		}
		if exists {
			return identity, nil
		}
		s.InvalidateIdentity(ctx, userID)
		return nil, ErrUserGone
	}

	identity, err := s.users.GetIdentity(storeCtx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserGone
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetIdentity(ctx, identity, s.cacheTTL); err != nil {
			s.logger.Warn("identity cache write failed",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return identity, nil
}

// InvalidateIdentity drops the cached identity for userID.
// Cache failures are logged, not returned; entries expire on their own.
func (s *AuthService) InvalidateIdentity(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteIdentity(ctx, userID); err != nil {
		s.logger.Warn("identity cache invalidation failed",
			"user_id", userID,
			"error", err,
		)
	}
}

func (s *AuthService) cachedIdentity(ctx context.Context, userID string) *model.Identity {
	if s.cache == nil {
		return nil
	}

	identity, err := s.cache.GetIdentity(ctx, userID)
	if err != nil {
		s.logger.Warn("identity cache read failed",
			"user_id", userID,
			"error", err,
		)
	}
	if identity == nil {
		s.metrics.IncIdentityCacheMiss()
		return nil
	}

	s.metrics.IncIdentityCacheHit()
	return identity
}

// findUser returns nil, nil when no user has the email.
func (s *AuthService) findUser(ctx context.Context, email string) (*model.User, error) {
	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetUserByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// burnVerify runs one verification against a fixed digest.
func (s *AuthService) burnVerify(ctx context.Context, password string) {
	digest := s.loadDummyDigest(ctx)
	if digest == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, digest)
}

// loadDummyDigest hashes dummyPassword on first use. The hash is detached from
// the caller's cancellation and retried on the next call if it fails.
func (s *AuthService) loadDummyDigest(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyDigest != "" {
		return s.dummyDigest
	}
	digest, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	if err != nil {
		s.logger.Warn("failed to prepare dummy digest", "error", err)
		return ""
	}
	s.dummyDigest = digest
	return digest
}
