package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackhub/backend/internal/middleware"
	"github.com/hackhub/backend/internal/models"
)

var (
	// ErrInvalidToken covers malformed, expired, tampered and wrongly signed
	// tokens alike; callers never learn which.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims holds JWT claims including user ID, role and, for admins, the
// organization chosen at login.
type Claims struct {
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		ttl:    time.Duration(expireHours) * time.Hour,
		now:    time.Now,
	}
}

// TTL is the token lifetime, also used as the cookie max age.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Generate creates a new JWT for the user. organizationID is only embedded
// for admins.
func (s *JWTService) Generate(user *models.User, organizationID *uuid.UUID) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	if user.Role == models.RoleAdmin {
		claims.OrganizationID = organizationID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or ErrInvalidToken.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify implements middleware.TokenVerifier.
func (s *JWTService) Verify(token string) (*middleware.Principal, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           models.Role(claims.Role),
		OrganizationID: claims.OrganizationID,
	}, nil
}
