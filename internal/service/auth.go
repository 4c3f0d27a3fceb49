package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a failed login
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

// TreasurerClaims are carried by the bearer tokens of the treasury API
type TreasurerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login authenticates the treasurer and returns a JWT token
func (s *Service) Login(login, password string) (string, error) {
	if s.config.TreasurerPasswordHash == "" || login != s.config.TreasurerLogin {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.TreasurerPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TreasurerClaims{
		Role: "treasurer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Treasurer logged in: %s", login)
	return tokenString, nil
}
