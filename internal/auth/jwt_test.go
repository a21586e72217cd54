package auth

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(42, "a@example.com", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID != "" {
		t.Fatal("access tokens must not carry a session ID")
	}
}

func TestRefreshTokenCarriesSessionID(t *testing.T) {
	token, sessionID, err := GenerateRefreshToken(42, "a@example.com", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a session ID")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.ID != sessionID {
		t.Fatalf("token JTI = %q, want %q", claims.ID, sessionID)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(42, "a@example.com", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(42, "a@example.com", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("not-a-token", testSecret); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !VerifyPassword("s3cret-password", hash) {
		t.Fatal("correct password should verify")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Fatal("wrong password must not verify")
	}
}
