package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orris-inc/offramp/internal/shared/authorization"
	"github.com/orris-inc/offramp/internal/shared/biztime"
)

var ErrEmptySubject = errors.New("token subject is required")

// Claims carries the caller identity. The subject owns the intents it creates.
type Claims struct {
	Role authorization.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  biztime.Clock
}

func NewJWTService(secret, issuer string, ttl time.Duration, clock biztime.Clock) *JWTService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		clock:  clock,
	}
}

// Issue signs an access token. Used by the token command and tests; end
// user sessions are issued upstream.
func (s *JWTService) Issue(subject string, role authorization.UserRole) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	now := s.clock.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrEmptySubject
	}
	claims.Role = authorization.ParseUserRole(string(claims.Role))
	return claims, nil
}
