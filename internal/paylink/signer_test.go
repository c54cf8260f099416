package paylink

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedSigner(now time.Time) *Signer {
	return &Signer{
		Secret:  []byte("paylink-test-secret"),
		BaseURL: "https://pay.example",
		TTL:     time.Hour,
		Now:     func() time.Time { return now },
	}
}

func TestGenerateVerifyRoundtrip(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	signer := fixedSigner(base)

	link, err := signer.Generate("sess-1", 65.5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(link.URL, "https://pay.example/pay/") {
		t.Fatalf("unexpected url: %q", link.URL)
	}
	if !link.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", link.ExpiresAt)
	}

	claims, err := signer.Verify(link.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SessionID != "sess-1" {
		t.Fatalf("unexpected session: %q", claims.SessionID)
	}
	if claims.Amount != 65.5 {
		t.Fatalf("unexpected amount: %v", claims.Amount)
	}
}

func TestVerifyRejectsExpiredLink(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	signer := fixedSigner(base)
	link, err := signer.Generate("sess-2", 20)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	signer.Now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := signer.Verify(link.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	signer := fixedSigner(base)
	link, err := signer.Generate("sess-3", 10)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := fixedSigner(base)
	other.Secret = []byte("some-other-secret")
	if _, err := other.Verify(link.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestGenerateRequiresBalance(t *testing.T) {
	signer := fixedSigner(time.Now())
	if _, err := signer.Generate("sess-4", 0); !errors.Is(err, ErrNothingDue) {
		t.Fatalf("expected ErrNothingDue, got %v", err)
	}
}
