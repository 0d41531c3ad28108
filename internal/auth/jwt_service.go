package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "clinic/internal/errors"
)

// DefaultTokenTTL is the lifetime of a token when the caller does not choose one.
const DefaultTokenTTL = 30 * time.Minute

// Claims represents JWT claims. The subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", apperrors.ErrUnauthorized)
	}
	return uint(id), nil
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue signs an HS256 token for userID valid for ttl. Every token gets a random
// ID, so two tokens issued in the same second still differ.
func (s *JWTService) Issue(userID uint, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now().UTC().Truncate(time.Second)
	expiresAt = now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies signature, algorithm and expiry. Any failure is ErrUnauthorized.
func (s *JWTService) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.ErrUnauthorized
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return claims, nil
}
