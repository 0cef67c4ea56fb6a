package jwttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "medinauts/pkg/domain-errors"
)

// DefaultTTL matches the lifetime of tokens issued by the backend.
const DefaultTTL = 30 * time.Minute

// AccessTokenClaims carries the account name in the standard subject claim.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

// WithClock overrides time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewJWTService(signingKey string, tokenTTL time.Duration, opts ...Option) *JWTService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTTL
	}
	s := &JWTService{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL is the lifetime of issued tokens.
func (s *JWTService) TTL() time.Duration {
	return s.tokenTTL
}

// GenerateAccessToken signs an HS256 token for username.
func (s *JWTService) GenerateAccessToken(username string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "username cannot be empty")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken returns the subject of a valid token. Expired tokens fail
// with session_expired; anything else unverifiable with auth_required.
func (s *JWTService) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", dErrors.New(dErrors.CodeAuthRequired, "empty token")
	}
	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeSessionExpired, "token expired")
		}
		return "", dErrors.New(dErrors.CodeAuthRequired, "could not validate credentials")
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeAuthRequired, "could not validate credentials")
	}
	return claims.Subject, nil
}
