// Package service holds the Auth Service: registration, login and
// self-service profile access for user and worker principals.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/home-services/internal/metrics"
	"github.com/iliyamo/home-services/internal/model"
	"github.com/iliyamo/home-services/internal/queue"
	"github.com/iliyamo/home-services/internal/repository"
	"github.com/iliyamo/home-services/internal/utils"
)

var tracer = otel.Tracer("github.com/iliyamo/home-services/internal/service")

// EventPublisher delivers registration events.  Implemented by
// *queue.Publisher.
type EventPublisher interface {
	PublishRegistered(ctx context.Context, ev queue.PrincipalRegisteredEvent) error
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// PublicPrincipal is what registration returns: never the hash.
type PublicPrincipal struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionPrincipal identifies the caller after login.
type SessionPrincipal struct {
	ID    uint64     `json:"id"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// LoginResult carries the issued bearer token.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      SessionPrincipal `json:"user"`
}

// ProfileResult is the role plus the role-specific profile view
// (model.UserProfile or model.WorkerProfile).
type ProfileResult struct {
	Role    model.Role `json:"role"`
	Profile any        `json:"profile"`
}

// Options tune an AuthService.  Zero values are valid.
type Options struct {
	PasswordMinLength int
	Events            EventPublisher
	Metrics           *metrics.Metrics
	// EventTimeout bounds a single publish; default 3s.
	EventTimeout time.Duration
}

// AuthService composes the credential store, password hasher and token
// manager.  It keeps no mutable state of its own besides the lazily built
// dummy hash.
type AuthService struct {
	store   repository.PrincipalStore
	hasher  *utils.Hasher
	tokens  *utils.TokenManager
	events  EventPublisher
	metrics *metrics.Metrics

	minPasswordLen int
	eventTimeout   time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the collaborators.
func NewAuthService(store repository.PrincipalStore, hasher *utils.Hasher, tokens *utils.TokenManager, opts Options) *AuthService {
	if store == nil || hasher == nil || tokens == nil {
		panic("nil dependency passed to NewAuthService")
	}
	s := &AuthService{
		store:          store,
		hasher:         hasher,
		tokens:         tokens,
		events:         opts.Events,
		metrics:        opts.Metrics,
		minPasswordLen: opts.PasswordMinLength,
		eventTimeout:   opts.EventTimeout,
	}
	if s.minPasswordLen <= 0 {
		s.minPasswordLen = DefaultPasswordMinLength
	}
	if s.eventTimeout <= 0 {
		s.eventTimeout = 3 * time.Second
	}
	return s
}

// Tokens exposes the token manager so transport layers verify with the
// same secret and issuer.
func (s *AuthService) Tokens() *utils.TokenManager { return s.tokens }

// Register creates a principal of kind.  Email uniqueness is checked within
// the kind only.
func (s *AuthService) Register(ctx context.Context, kind model.Kind, in RegisterInput) (_ PublicPrincipal, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register", trace.WithAttributes(attribute.String("principal.kind", string(kind))))
	defer func() { endSpan(span, err) }()

	if !kind.Valid() {
		return PublicPrincipal{}, ErrUnknownKind
	}
	if err := validateRegistration(in, s.minPasswordLen); err != nil {
		return PublicPrincipal{}, err
	}
	email := strings.TrimSpace(in.Email)

	if _, err := s.store.FindByEmail(ctx, kind, email); err == nil {
		return PublicPrincipal{}, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return PublicPrincipal{}, fmt.Errorf("check existing %s: %w", kind, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return PublicPrincipal{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.store.CreatePrincipal(ctx, model.Principal{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         kind.DefaultRole(),
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repository.ErrEmailExists) {
			return PublicPrincipal{}, ErrDuplicateEmail
		}
		return PublicPrincipal{}, fmt.Errorf("create %s: %w", kind, err)
	}

	s.metrics.Registered(string(kind))
	s.publishRegistered(ctx, created)
	return PublicPrincipal{ID: created.ID, Email: created.Email, Name: created.Name}, nil
}

func (s *AuthService) publishRegistered(ctx context.Context, p model.Principal) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.eventTimeout)
	defer cancel()
	ev := queue.PrincipalRegisteredEvent{
		PrincipalID:  p.ID,
		Kind:         string(p.Kind()),
		Role:         string(p.Role),
		Email:        p.Email,
		Name:         p.Name,
		RegisteredAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishRegistered(ctx, ev); err != nil {
		log.Printf("auth: publish registration event for %s %d: %v", ev.Kind, ev.PrincipalID, err)
	}
}

// Login authenticates by email across both kinds: users first, then
// workers.  Unknown email and wrong password return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (_ LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	p, err := s.lookupAnyKind(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		// Spend the same hashing time as a real mismatch.
		_, _ = s.hasher.Verify(s.dummy(), password)
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		s.metrics.LoginAttempt(metrics.LoginError)
		return LoginResult{}, fmt.Errorf("find principal: %w", err)
	}

	ok, err := s.hasher.Verify(p.PasswordHash, password)
	if err != nil || !ok {
		if err != nil {
			log.Printf("auth: verify password for %s %d: %v", p.Kind(), p.ID, err)
		}
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		return LoginResult{}, ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(p.ID, p.Email, string(p.Role))
	if err != nil {
		s.metrics.LoginAttempt(metrics.LoginError)
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.metrics.LoginAttempt(metrics.LoginSuccess)
	span.SetAttributes(attribute.String("principal.role", string(p.Role)))
	return LoginResult{
		Token:     access.Token,
		ExpiresAt: access.Exp,
		User:      SessionPrincipal{ID: p.ID, Email: p.Email, Role: p.Role},
	}, nil
}

func (s *AuthService) lookupAnyKind(ctx context.Context, email string) (model.Principal, error) {
	for _, kind := range []model.Kind{model.KindUser, model.KindWorker} {
		p, err := s.store.FindByEmail(ctx, kind, email)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, err
		}
	}
	return model.Principal{}, repository.ErrNotFound
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("timing-equalizer-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Authenticate verifies a raw bearer token and returns its claims.
func (s *AuthService) Authenticate(raw string) (*utils.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetProfile resolves the caller's profile from the role in the token.
func (s *AuthService) GetProfile(ctx context.Context, raw string) (_ ProfileResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.GetProfile")
	defer func() { endSpan(span, err) }()

	claims, err := s.Authenticate(raw)
	if err != nil {
		return ProfileResult{}, err
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return ProfileResult{}, ErrInvalidToken
	}

	switch role := model.Role(claims.Role); role {
	case model.RoleUser:
		p, err := s.store.UserProfile(ctx, id)
		if err != nil {
			return ProfileResult{}, profileErr(err)
		}
		return ProfileResult{Role: role, Profile: p}, nil
	case model.RoleWorker:
		p, err := s.store.WorkerProfile(ctx, id)
		if err != nil {
			return ProfileResult{}, profileErr(err)
		}
		return ProfileResult{Role: role, Profile: p}, nil
	default:
		return ProfileResult{}, ErrUnsupportedRole
	}
}

// A valid token for a row that no longer exists is as good as no token.
func profileErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	return fmt.Errorf("load profile: %w", err)
}

// UpdateProfile applies patch to the user row with principalID.  It does not
// authorize the caller; the transport layer must ensure the token belongs
// to this user-kind principal.
func (s *AuthService) UpdateProfile(ctx context.Context, principalID uint64, patch model.ProfilePatch) (_ model.UserProfile, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.UpdateProfile", trace.WithAttributes(attribute.Int64("principal.id", int64(principalID))))
	defer func() { endSpan(span, err) }()

	p, err := s.store.UpdateUserProfile(ctx, principalID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserProfile{}, ErrInvalidToken
		}
		return model.UserProfile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// SeedAdmin creates an admin principal in the users table unless an admin
// with that email already exists there.  It reports whether a row was
// created.  An email held by a non-admin user is ErrDuplicateEmail.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (model.Principal, bool, error) {
	email = strings.TrimSpace(email)
	if err := validateRegistration(RegisterInput{Email: email, Password: password}, s.minPasswordLen); err != nil {
		return model.Principal{}, false, err
	}
	existing, err := s.store.FindByEmail(ctx, model.KindUser, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			return model.Principal{}, false, fmt.Errorf("%s belongs to a %s account: %w", email, existing.Role, ErrDuplicateEmail)
		}
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Principal{}, false, fmt.Errorf("check existing admin: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.Principal{}, false, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.store.CreatePrincipal(ctx, model.Principal{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return model.Principal{}, false, fmt.Errorf("create admin: %w", err)
	}
	return created, true, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
