package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"harvesthub-backend/internal/domain"
)

const (
	DefaultTokenTTL = 10 * time.Hour
	tokenLeeway     = 30 * time.Second
)

var (
	ErrTokenMalformed        = ErrAuth("token malformed")
	ErrTokenInvalidSignature = ErrAuth("token signature invalid")
	ErrTokenExpired          = ErrAuth("token expired")
)

type Claims struct {
	IdentityID int64
	Role       domain.Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (s *TokenService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *TokenService) Issue(identityID int64, role domain.Role) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identityID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 {
		return nil, ErrTokenMalformed
	}
	// Compared in encoded form: altered base64 padding bits must fail too.
	mac := hmac.New(sha256.New, s.Secret)
	mac.Write([]byte(token[:dot]))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(want), []byte(token[dot+1:])) != 1 {
		return nil, ErrTokenInvalidSignature
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	id, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	role, ok := domain.ParseRole(tc.Role)
	if !ok {
		return nil, ErrTokenMalformed
	}
	c := &Claims{IdentityID: id, Role: role}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, nil
}

// RequireRole fails with ErrForbidden unless c carries one of roles.
func RequireRole(c *Claims, roles ...domain.Role) error {
	if c == nil {
		return ErrAuth("authentication required")
	}
	for _, r := range roles {
		if c.Role == r {
			return nil
		}
	}
	return ErrForbidden("role " + string(c.Role) + " not permitted")
}
