// Package paylink issues signed payment links for the balance still owed on a
// checkout session. The link carries everything the payment page needs, so no
// server-side state is written until the payment actually lands.
package paylink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// ErrNothingDue is returned when a link is requested for a settled session.
var ErrNothingDue = errors.New("paylink: nothing left to collect")

// ErrInvalidToken is returned when a presented token fails verification.
var ErrInvalidToken = errors.New("paylink: invalid token")

// Link is a generated payment link.
type Link struct {
	Token     string        `json:"token"`
	URL       string        `json:"url"`
	Amount    pricing.Money `json:"amount"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Claims is the verified content of a presented token.
type Claims struct {
	SessionID string        `json:"sessionId"`
	Amount    pricing.Money `json:"amount"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Signer mints and verifies payment link tokens with a shared HS256 secret.
type Signer struct {
	Secret  []byte
	BaseURL string
	Issuer  string
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Signer) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Signer) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Signer) issuer() string {
	if s == nil || s.Issuer == "" {
		return "pos-engine"
	}
	return s.Issuer
}

// Generate signs a link for the remaining balance of the session.
func (s *Signer) Generate(sessionID string, amount pricing.Money) (Link, error) {
	if s == nil || len(s.Secret) == 0 {
		return Link{}, errors.New("paylink: secret not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Link{}, errors.New("paylink: session id is required")
	}
	if amount <= 0 {
		return Link{}, ErrNothingDue
	}

	now := s.now()
	expiresAt := now.Add(s.ttl())
	token, err := jwt.NewBuilder().
		Subject(sessionID).
		Issuer(s.issuer()).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim("amount", pricing.Round(amount)).
		Build()
	if err != nil {
		return Link{}, fmt.Errorf("paylink: build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.Secret))
	if err != nil {
		return Link{}, fmt.Errorf("paylink: sign token: %w", err)
	}

	link := Link{
		Token:     string(signed),
		Amount:    pricing.Round(amount),
		ExpiresAt: expiresAt,
	}
	if s.BaseURL != "" {
		link.URL = strings.TrimRight(s.BaseURL, "/") + "/pay/" + link.Token
	}
	return link, nil
}

// Verify checks the signature and expiry of a presented token.
func (s *Signer) Verify(token string) (Claims, error) {
	if s == nil || len(s.Secret) == 0 {
		return Claims{}, errors.New("paylink: secret not configured")
	}
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.Secret),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := jwt.Validate(parsed,
		jwt.WithClock(jwt.ClockFunc(s.now)),
		jwt.WithIssuer(s.issuer()),
	); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := Claims{
		SessionID: parsed.Subject(),
		ExpiresAt: parsed.Expiration(),
	}
	if raw, ok := parsed.Get("amount"); ok {
		if amount, ok := raw.(float64); ok {
			claims.Amount = pricing.Money(amount)
		}
	}
	if claims.SessionID == "" || claims.Amount <= 0 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
