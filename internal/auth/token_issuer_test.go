package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionIssuerIssuesTokens(t *testing.T) {
	issuer, err := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte("super-secret"),
		Issuer:        "lemon",
		Audience:      "lemon-cli",
		TokenTTL:      30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, expiresAt, err := issuer.IssueSessionToken("7")
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %s", expiresAt)
	}

	parser := jwt.Parser{}
	claims := &jwt.RegisteredClaims{}
	_, err = parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}
	if claims.Subject != "7" {
		t.Fatalf("unexpected subject %s", claims.Subject)
	}
	if claims.Issuer != "lemon" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
	if len(claims.Audience) == 0 || claims.Audience[0] != "lemon-cli" {
		t.Fatalf("unexpected audience %#v", claims.Audience)
	}
}

func TestSessionIssuerValidatesIssuedTokens(t *testing.T) {
	issuer, err := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte("another-secret"),
		Issuer:        "lemon",
		Audience:      "lemon-cli",
		TokenTTL:      15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	tokenString, _, err := issuer.IssueSessionToken("321")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	subject, err := issuer.ValidateSessionToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if subject != "321" {
		t.Fatalf("unexpected subject %s", subject)
	}

	if _, err := issuer.ValidateSessionToken("invalid.token"); err == nil {
		t.Fatalf("expected validation to fail for malformed token")
	}
}

func TestSessionIssuerRejectsExpiredTokens(t *testing.T) {
	issuedAt := time.Unix(1700000000, 0)
	now := issuedAt
	issuer, err := NewSessionIssuer(SessionIssuerConfig{
		SigningSecret: []byte("secret"),
		Issuer:        "lemon",
		Audience:      "lemon-cli",
		TokenTTL:      time.Minute,
		Clock:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	tokenString, _, err := issuer.IssueSessionToken("1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	now = issuedAt.Add(2 * time.Minute)
	_, err = issuer.ValidateSessionToken(tokenString)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestSessionIssuerRejectsForeignSecret(t *testing.T) {
	first, _ := NewSessionIssuer(SessionIssuerConfig{SigningSecret: []byte("one"), Issuer: "lemon", Audience: "lemon-cli"})
	second, _ := NewSessionIssuer(SessionIssuerConfig{SigningSecret: []byte("two"), Issuer: "lemon", Audience: "lemon-cli"})

	tokenString, _, err := first.IssueSessionToken("5")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if _, err := second.ValidateSessionToken(tokenString); err == nil {
		t.Fatalf("expected signature mismatch to fail validation")
	}
}

func TestNewSessionIssuerValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SessionIssuerConfig
	}{
		{name: "missing-secret", cfg: SessionIssuerConfig{Issuer: "lemon", Audience: "lemon-cli"}},
		{name: "missing-issuer", cfg: SessionIssuerConfig{SigningSecret: []byte("s"), Audience: "lemon-cli"}},
		{name: "blank-audience", cfg: SessionIssuerConfig{SigningSecret: []byte("s"), Issuer: "lemon", Audience: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSessionIssuer(tt.cfg); err == nil {
				t.Fatalf("expected constructor error")
			}
		})
	}
}

func TestIssueSessionTokenRequiresSubject(t *testing.T) {
	issuer, _ := NewSessionIssuer(SessionIssuerConfig{SigningSecret: []byte("s"), Issuer: "lemon", Audience: "lemon-cli"})
	if _, _, err := issuer.IssueSessionToken(" "); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
