// Package service contains application services: identity, catalog, playback
// and the subscription lifecycle controller.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/vazadinhas/internal/crypto"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/events"
	"github.com/and161185/vazadinhas/internal/limiter"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

const tokenLeeway = 30 * time.Second

// IdentityService issues, resolves and revokes sessions.
type IdentityService interface {
	// SignInOrRegister signs in with email and password, provisioning the account
	// on first use. Attempts are limited per (email, client IP).
	SignInOrRegister(ctx context.Context, email, password, clientIP string) (*model.Session, error)
	// CurrentSession resolves a bearer token to a live session.
	CurrentSession(ctx context.Context, token string) (*model.Session, error)
	// SignOut revokes the session.
	SignOut(ctx context.Context, s *model.Session) error
	// Events subscribes to session changes of a user.
	Events(userID uuid.UUID) (<-chan model.SessionEvent, func())
	// PurgeExpired deletes expired session rows.
	PurgeExpired(ctx context.Context) (int64, error)
}

// IdentityConfig holds token and admin settings.
type IdentityConfig struct {
	SignKey     []byte
	SessionTTL  time.Duration
	AdminEmails []string
}

type IdentityServiceImpl struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	lim      limiter.Limiter
	broker   *events.Broker
	signKey  []byte
	ttl      time.Duration
	admins   map[string]struct{}
	now      func() time.Time
	sign     func(jwt.Claims) (string, error)
	log      *zap.Logger
}

type sessionClaims struct {
	Email string `json:"email"`
	Admin bool   `json:"adm"`
	jwt.RegisteredClaims
}

// NewIdentityService constructs IdentityService with required dependencies.
func NewIdentityService(users repository.UserRepository, sessions repository.SessionRepository, lim limiter.Limiter,
	broker *events.Broker, cfg IdentityConfig, log *zap.Logger) *IdentityServiceImpl {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		if e = NormalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	s := &IdentityServiceImpl{
		users: users, sessions: sessions, lim: lim, broker: broker,
		signKey: cfg.SignKey, ttl: cfg.SessionTTL, admins: admins,
		now: time.Now, log: log,
	}
	s.sign = s.signHS256
	return s
}

func (s *IdentityServiceImpl) signHS256(c jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is invalid", errs.ErrValidation)
	}
	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must have at least %d characters", errs.ErrValidation, MinPasswordLen)
	}
	return nil
}

// SignInOrRegister authenticates, creating the account when the email is unknown.
func (s *IdentityServiceImpl) SignInOrRegister(ctx context.Context, email, password, clientIP string) (*model.Session, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}
	ipHash := limiter.HashIP(clientIP)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return nil, errs.Persistence("limiter.allow", err)
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		u, err = s.register(ctx, email, password)
		if errors.Is(err, errs.ErrAlreadyExists) {
			// lost a race with a concurrent first sign-in; verify against the winner
			u, err = s.users.GetByEmail(ctx, email)
			if err == nil {
				err = s.verify(ctx, u, password, ipHash)
			}
		}
	case err == nil:
		err = s.verify(ctx, u, password, ipHash)
	}
	switch {
	case errors.Is(err, errs.ErrUnauthorized), errors.Is(err, errs.ErrRateLimited):
		return nil, err
	case err != nil:
		return nil, errs.Persistence("users.sign_in", err)
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}
	return s.issue(ctx, u)
}

func (s *IdentityServiceImpl) register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:        uuid.Must(uuid.NewV4()),
		Email:     email,
		PwdHash:   hash,
		CreatedAt: s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("account provisioned", zap.String("user_id", u.ID.String()))
	return u, nil
}

// verify checks the password and records failures with the limiter.
func (s *IdentityServiceImpl) verify(ctx context.Context, u *model.User, password string, ipHash []byte) error {
	ok, err := pkgcrypto.VerifyPassword(password, u.PwdHash)
	if err == nil && ok {
		return nil
	}
	if err != nil {
		s.log.Error("stored password hash unreadable", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	blocked, _, ferr := s.lim.Failure(ctx, u.Email, ipHash)
	if ferr != nil {
		s.log.Warn("limiter failure not recorded", zap.Error(ferr))
	}
	if blocked {
		return errs.ErrRateLimited
	}
	return errs.ErrUnauthorized
}

func (s *IdentityServiceImpl) isAdmin(u *model.User) bool {
	if u.IsAdmin {
		return true
	}
	_, ok := s.admins[u.Email]
	return ok
}

func (s *IdentityServiceImpl) issue(ctx context.Context, u *model.User) (*model.Session, error) {
	now := s.now()
	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    u.ID,
		Email:     u.Email,
		Admin:     s.isAdmin(u),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	claims := sessionClaims{
		Email: sess.Email,
		Admin: sess.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID.String(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	// the row is written only once a token exists for it
	signed, err := s.sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	sess.Token = signed

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errs.Persistence("sessions.create", err)
	}

	s.broker.Publish(model.SessionEvent{Kind: model.SessionSignedIn, UserID: u.ID, SessionID: sess.ID, At: now})
	return sess, nil
}

// CurrentSession verifies the token and that its session row has not been revoked.
func (s *IdentityServiceImpl) CurrentSession(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, errs.ErrNotAuthenticated
	}
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(tokenLeeway), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, errs.ErrNotAuthenticated
	}

	sid, err := uuid.FromString(claims.ID)
	if err != nil {
		return nil, errs.ErrNotAuthenticated
	}
	row, err := s.sessions.Get(ctx, sid)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrNotAuthenticated
	}
	if err != nil {
		return nil, errs.Persistence("sessions.get", err)
	}
	if row.UserID.String() != claims.Subject || row.IsExpired(s.now()) {
		return nil, errs.ErrNotAuthenticated
	}

	row.Token = token
	row.Admin = s.isAdmin(&model.User{Email: row.Email, IsAdmin: row.Admin})
	return row, nil
}

// SignOut deletes the session row. Signing out twice is not an error.
func (s *IdentityServiceImpl) SignOut(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		return errs.ErrNotAuthenticated
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil && !errors.Is(err, errs.ErrNotFound) {
		return errs.Persistence("sessions.delete", err)
	}
	s.broker.Publish(model.SessionEvent{Kind: model.SessionSignedOut, UserID: sess.UserID, SessionID: sess.ID, At: s.now()})
	return nil
}

// Events subscribes to session changes of userID.
func (s *IdentityServiceImpl) Events(userID uuid.UUID) (<-chan model.SessionEvent, func()) {
	return s.broker.Subscribe(userID)
}

// PurgeExpired removes session rows past their expiry.
func (s *IdentityServiceImpl) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, errs.Persistence("sessions.delete_expired", err)
	}
	return n, nil
}
