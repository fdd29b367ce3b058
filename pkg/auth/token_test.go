package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "hardware-backend",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleDelivery,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleDelivery {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != "session-1" {
		t.Fatalf("expected jti session-1, got %q", claims.ID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(30 * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v", exp, claims.ExpiresAt.Time)
	}
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		t.Fatalf("expected uuid jti, got %q", claims.ID)
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	_, err = ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAccessTokenRejectsUnknownRole(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		{"empty role", cfg, AccessTokenPayload{UserID: uuid.New()}},
		{"nil user", cfg, AccessTokenPayload{Role: enums.UserRoleCustomer}},
		{"missing secret", config.JWTConfig{Issuer: "x", ExpirationMinutes: 5}, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}},
		{"zero ttl", config.JWTConfig{Secret: "s", Issuer: "x"}, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := MintAccessToken(tc.cfg, time.Now(), tc.payload); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
		JTI:    "old-session",
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("parse expired token: %v", err)
	}
	if claims.ID != "old-session" {
		t.Fatalf("expected jti old-session, got %q", claims.ID)
	}
}
