package service

import (
	"errors"
	"livepoll/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenService issues and checks presenter capability tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewTokenService creates a token service signing with secret. A nil clock
// uses wall time.
func NewTokenService(secret string, ttl time.Duration, clock clockwork.Clock) *TokenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
	}
}

// IssuePresenterToken creates a token granting presenter rights on one session
func (s *TokenService) IssuePresenterToken(sessionID string) (string, error) {
	now := s.clock.Now()
	claims := &model.PresenterClaims{
		SessionID: sessionID,
		Role:      model.RolePresenter,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidatePresenterToken checks that tokenString grants presenter rights on sessionID
func (s *TokenService) ValidatePresenterToken(tokenString, sessionID string) error {
	token, err := jwt.ParseWithClaims(tokenString, &model.PresenterClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.PresenterClaims)
	if !ok || !token.Valid {
		return ErrInvalidToken
	}
	if claims.SessionID != sessionID || claims.Role != model.RolePresenter {
		return ErrInvalidToken
	}
	return nil
}
