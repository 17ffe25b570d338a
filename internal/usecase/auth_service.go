package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/metrics"
)

type IdentityRepo interface {
	CreateIdentity(ctx context.Context, u *domain.Identity) error
	GetIdentity(ctx context.Context, id int64) (*domain.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

type LoginAttemptRepo interface {
	CreateLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error
}

// PasswordHasher is an opaque one-way verifier.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LoginAudit records one LoginAttempt per sign-in call.
type LoginAudit struct {
	Repo    LoginAttemptRepo
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type LoginRecord struct {
	Identity  *domain.Identity
	Email     string
	IP        string
	UserAgent string
	Reason    string
}

func (a *LoginAudit) Record(ctx context.Context, r LoginRecord) {
	if a == nil || a.Repo == nil {
		return
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	at := &domain.LoginAttempt{
		Email:     r.Email,
		At:        now().UTC(),
		IP:        r.IP,
		UserAgent: r.UserAgent,
		Outcome:   domain.LoginSuccess,
	}
	if r.Identity != nil {
		id := r.Identity.ID
		at.IdentityID = &id
	}
	if r.Reason != "" {
		reason := r.Reason
		at.Outcome = domain.LoginFailed
		at.FailureReason = &reason
	}
	a.Metrics.Login(string(at.Outcome))
	if err := a.Repo.CreateLoginAttempt(ctx, at); err != nil && a.Logger != nil {
		a.Logger.WarnContext(ctx, "login audit write failed", "email", r.Email, "outcome", at.Outcome, "err", err)
	}
}

type AuthService struct {
	Identities IdentityRepo
	Audit      *LoginAudit
	Tokens     *TokenService
	Hasher     PasswordHasher
	Now        func() time.Time
}

type SignUpInput struct {
	Name      string
	Email     string
	Password  string
	Role      string
	Phone     string
	Location  string
	Latitude  *float64
	Longitude *float64
}

const errBadCredentials = ErrAuth("invalid email or password")

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (string, *domain.Identity, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", nil, ErrValidation("valid email required")
	}
	if len(in.Password) < 6 {
		return "", nil, ErrValidation("password must be at least 6 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return "", nil, ErrValidation("name required")
	}
	role := domain.RoleCustomer
	if strings.TrimSpace(in.Role) != "" {
		r, ok := domain.ParseRole(in.Role)
		if !ok || r == domain.RoleAdmin {
			return "", nil, ErrValidation("type must be Farmer or Customer")
		}
		role = r
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return "", nil, ErrValidation("latitude and longitude must be set together")
	}
	_, err := s.Identities.GetIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		return "", nil, ErrValidation("user with this email already exists")
	case !errors.Is(err, domain.ErrNotFound):
		return "", nil, err
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return "", nil, err
	}
	u := &domain.Identity{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        in.Phone,
		Location:     in.Location,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.Identities.CreateIdentity(ctx, u); err != nil {
		return "", nil, err
	}
	tok, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password, ip, userAgent string) (string, *domain.Identity, error) {
	email = normalizeEmail(email)
	rec := LoginRecord{Email: email, IP: ip, UserAgent: userAgent}
	u, err := s.Identities.GetIdentityByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		rec.Reason = domain.FailureUserNotFound
		s.Audit.Record(ctx, rec)
		return "", nil, errBadCredentials
	}
	if err != nil {
		rec.Reason = domain.FailureLookupError
		s.Audit.Record(ctx, rec)
		return "", nil, err
	}
	rec.Identity = u
	if !s.Hasher.Verify(u.PasswordHash, password) {
		rec.Reason = domain.FailureInvalidPassword
		s.Audit.Record(ctx, rec)
		return "", nil, errBadCredentials
	}
	tok, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	s.Audit.Record(ctx, rec)
	return tok, u, nil
}

// Authenticate resolves a verified token back to its identity.
func (s *AuthService) Authenticate(ctx context.Context, c *Claims) (*domain.Identity, error) {
	if c == nil {
		return nil, ErrAuth("authentication required")
	}
	u, err := s.Identities.GetIdentity(ctx, c.IdentityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrAuth("user not found")
	}
	return u, err
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
