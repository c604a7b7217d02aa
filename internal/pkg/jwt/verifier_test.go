package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims *Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func workspaceClaims(workspaceID string) *Claims {
	return &Claims{
		WorkspaceID:    workspaceID,
		SessionPurpose: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "paysandbox",
			Audience:  jwt.ClaimStrings{"paysandbox-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyWorkspaceToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	v := NewVerifier(&key.PublicKey, "paysandbox", "paysandbox-api")

	claims, err := v.VerifyWorkspaceToken(signToken(t, key, workspaceClaims("ws_1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.WorkspaceID != "ws_1" {
		t.Fatalf("workspace = %q", claims.WorkspaceID)
	}

	if _, err := v.VerifyWorkspaceToken(signToken(t, key, workspaceClaims(""))); err == nil {
		t.Fatal("expected error for token without workspace")
	}

	bad := workspaceClaims("ws_1")
	bad.Issuer = "someone-else"
	if _, err := v.VerifyWorkspaceToken(signToken(t, key, bad)); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	other, _ := rsa.GenerateKey(rand.Reader, 2048)
	if _, err := v.VerifyWorkspaceToken(signToken(t, other, workspaceClaims("ws_1"))); err == nil {
		t.Fatal("expected signature failure for foreign key")
	}
}

func TestParseRSAPublicKey(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := ParseRSAPublicKey(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 {
		t.Fatal("parsed key differs")
	}

	if _, err := ParseRSAPublicKey([]byte("not pem")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
