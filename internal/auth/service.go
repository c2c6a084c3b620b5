package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Service validates HS256 access tokens issued by the ticketing backend.
// Users and sessions live there; this service only reads the claims.
type Service struct {
	jwtSecret []byte
}

// NewService creates an auth service validating HS256 tokens signed with
// jwtSecret.
func NewService(jwtSecret string) *Service {
	return &Service{jwtSecret: []byte(jwtSecret)}
}

// Identity is the caller behind a validated token.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// ValidateToken parses and verifies a JWT and returns the identity it
// carries.
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", errors.Join(ErrInvalidToken, err))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("missing subject: %w", ErrInvalidToken)
	}

	id := &Identity{UserID: userID}
	id.Email, _ = claims["email"].(string)
	id.DisplayName, _ = claims["name"].(string)
	if id.DisplayName == "" {
		id.DisplayName = id.Email
	}
	if id.DisplayName == "" {
		id.DisplayName = userID
	}
	return id, nil
}
