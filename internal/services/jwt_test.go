package services

import (
	"testing"

	"cosmic-chicken-backend/internal/config"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(&config.Config{JWTSecret: "test-secret"})

	token, err := svc.GenerateToken("0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Address != "0x1111111111111111111111111111111111111111" {
		t.Errorf("Address = %q, want the issuing address", claims.Address)
	}
	if claims.SessionID == "" {
		t.Error("SessionID should be set")
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(&config.Config{JWTSecret: "secret-a"})
	verifier := NewJWTService(&config.Config{JWTSecret: "secret-b"})

	token, err := issuer.GenerateToken("0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("token signed with another secret should be rejected")
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService(&config.Config{JWTSecret: "test-secret"})

	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Error("malformed token should be rejected")
	}
}
