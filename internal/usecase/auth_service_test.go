package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/infrastructure/repo"
	"harvesthub-backend/internal/metrics"
	"harvesthub-backend/internal/usecase"
)

func newAuth(store *repo.MemoryStore, attempts usecase.LoginAttemptRepo) (*usecase.AuthService, *metrics.Metrics) {
	m := metrics.New()
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return &usecase.AuthService{
		Identities: store,
		Audit:      &usecase.LoginAudit{Repo: attempts, Logger: quiet, Metrics: m, Now: now},
		Tokens:     usecase.NewTokenService("secret", time.Hour),
		Hasher:     usecase.BcryptHasher{Cost: bcrypt.MinCost},
		Now:        now,
	}, m
}

func TestSignUpValidation(t *testing.T) {
	lat := 1.0
	valid := usecase.SignUpInput{Name: "Asha", Email: "asha@farm.in", Password: "secret1"}
	cases := map[string]func(*usecase.SignUpInput){
		"bad email":       func(in *usecase.SignUpInput) { in.Email = "asha" },
		"short password":  func(in *usecase.SignUpInput) { in.Password = "12345" },
		"blank name":      func(in *usecase.SignUpInput) { in.Name = "  " },
		"admin role":      func(in *usecase.SignUpInput) { in.Role = "Admin" },
		"unknown role":    func(in *usecase.SignUpInput) { in.Role = "Trader" },
		"half coordinate": func(in *usecase.SignUpInput) { in.Latitude = &lat },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := repo.NewMemoryStore()
			svc, _ := newAuth(store, store)
			in := valid
			mutate(&in)
			_, _, err := svc.SignUp(context.Background(), in)
			assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))
		})
	}
}

func TestSignUpCreatesIdentity(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, _ := newAuth(store, store)

	tok, u, err := svc.SignUp(context.Background(), usecase.SignUpInput{
		Name: " Asha ", Email: " Asha@Farm.IN", Password: "secret1", Role: "farmer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@farm.in", u.Email)
	assert.Equal(t, domain.RoleFarmer, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	c, err := svc.Tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, c.IdentityID)

	_, _, err = svc.SignUp(context.Background(), usecase.SignUpInput{Name: "B", Email: "asha@farm.in", Password: "secret2"})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err), "duplicate email")
}

func TestSignUpDefaultsToCustomer(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, _ := newAuth(store, store)
	_, u, err := svc.SignUp(context.Background(), usecase.SignUpInput{Name: "C", Email: "c@x.io", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, u.Role)
}

func TestSignInAudit(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, m := newAuth(store, store)
	_, u, err := svc.SignUp(context.Background(), usecase.SignUpInput{Name: "C", Email: "c@x.io", Password: "secret1"})
	require.NoError(t, err)

	_, _, err = svc.SignIn(context.Background(), "nobody@x.io", "secret1", "10.0.0.1", "curl")
	assert.Equal(t, usecase.KindAuth, usecase.KindOf(err))
	_, _, err2 := svc.SignIn(context.Background(), "c@x.io", "wrong", "10.0.0.1", "curl")
	assert.Equal(t, err.Error(), err2.Error(), "failures are indistinguishable")
	tok, _, err := svc.SignIn(context.Background(), "C@X.io", "secret1", "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	log := store.LoginAttempts()
	require.Len(t, log, 3)
	assert.Nil(t, log[0].IdentityID)
	assert.Equal(t, domain.FailureUserNotFound, *log[0].FailureReason)
	assert.Equal(t, u.ID, *log[1].IdentityID)
	assert.Equal(t, domain.FailureInvalidPassword, *log[1].FailureReason)
	assert.Equal(t, domain.LoginSuccess, log[2].Outcome)
	assert.Nil(t, log[2].FailureReason)
	assert.Equal(t, "curl", log[2].UserAgent)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins(string(domain.LoginFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins(string(domain.LoginSuccess))))
}

type brokenAudit struct{}

func (brokenAudit) CreateLoginAttempt(context.Context, *domain.LoginAttempt) error {
	return errors.New("audit table locked")
}

func TestSignInSurvivesAuditFailure(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, _ := newAuth(store, brokenAudit{})
	_, _, err := svc.SignUp(context.Background(), usecase.SignUpInput{Name: "C", Email: "c@x.io", Password: "secret1"})
	require.NoError(t, err)

	tok, _, err := svc.SignIn(context.Background(), "c@x.io", "secret1", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

type flakyIdentities struct {
	*repo.MemoryStore
}

func (flakyIdentities) GetIdentityByEmail(context.Context, string) (*domain.Identity, error) {
	return nil, errors.New("connection reset")
}

func TestSignInAuditsLookupFailure(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, m := newAuth(store, store)
	svc.Identities = flakyIdentities{store}

	_, _, err := svc.SignIn(context.Background(), "c@x.io", "secret1", "10.0.0.1", "curl")
	require.Error(t, err)
	assert.Equal(t, usecase.KindServer, usecase.KindOf(err))

	log := store.LoginAttempts()
	require.Len(t, log, 1)
	assert.Equal(t, domain.LoginFailed, log[0].Outcome)
	assert.Equal(t, domain.FailureLookupError, *log[0].FailureReason)
	assert.Equal(t, "c@x.io", log[0].Email)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins(string(domain.LoginFailed))))
}

func TestAuthenticate(t *testing.T) {
	store := repo.NewMemoryStore()
	svc, _ := newAuth(store, store)
	_, u, err := svc.SignUp(context.Background(), usecase.SignUpInput{Name: "C", Email: "c@x.io", Password: "secret1"})
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), &usecase.Claims{IdentityID: u.ID, Role: u.Role})
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = svc.Authenticate(context.Background(), &usecase.Claims{IdentityID: 99, Role: domain.RoleCustomer})
	assert.Equal(t, usecase.KindAuth, usecase.KindOf(err))
	_, err = svc.Authenticate(context.Background(), nil)
	assert.Equal(t, usecase.KindAuth, usecase.KindOf(err))
}
