package service

import (
	"errors"
	"testing"
	"time"

	"livepoll/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

func TestPresenterTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, nil)

	token, err := svc.IssuePresenterToken("s1")
	if err != nil {
		t.Fatalf("IssuePresenterToken: %v", err)
	}
	if err := svc.ValidatePresenterToken(token, "s1"); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if err := svc.ValidatePresenterToken(token, "s2"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token for s1 accepted for s2: %v", err)
	}
}

func TestPresenterTokenRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour, nil)
	other := NewTokenService("other-secret", time.Hour, nil)

	foreign, _ := other.IssuePresenterToken("s1")
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.PresenterClaims{
		SessionID: "s1",
		Role:      model.RolePresenter,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	voter, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &model.PresenterClaims{
		SessionID: "s1",
		Role:      model.RoleVoter,
	}).SignedString([]byte("secret"))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &model.PresenterClaims{
		SessionID: "s1",
		Role:      model.RolePresenter,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"expired":        expired,
		"voter role":     voter,
		"unsigned token": none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if err := svc.ValidatePresenterToken(token, "s1"); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestPresenterTokenExpiresAfterTTL(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	svc := NewTokenService("secret", 10*time.Minute, clock)

	token, err := svc.IssuePresenterToken("s1")
	if err != nil {
		t.Fatalf("IssuePresenterToken: %v", err)
	}
	clock.Advance(9 * time.Minute)
	if err := svc.ValidatePresenterToken(token, "s1"); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if err := svc.ValidatePresenterToken(token, "s1"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken after TTL", err)
	}
}

func TestPresenterTokenWithoutTTLNeverExpires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start)
	svc := NewTokenService("secret", 0, clock)

	token, _ := svc.IssuePresenterToken("s1")
	clock.Advance(365 * 24 * time.Hour)
	if err := svc.ValidatePresenterToken(token, "s1"); err != nil {
		t.Errorf("token without TTL rejected: %v", err)
	}
}
