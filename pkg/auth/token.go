package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/pkg/config"
)

var (
	signingMethod = jwt.SigningMethodHS256

	errMissingSecret = errors.New("jwt secret is required")
)

// MintAccessToken signs an HS256 access token valid for cfg.AccessTokenTTL
// from now. An empty JTI gets a fresh uuid; the JTI doubles as the session id.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errMissingSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.UserID == uuid.Nil:
		return "", errors.New("user id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	sessionID := strings.TrimSpace(payload.JTI)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	token := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL())),
		},
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, and rejects roles
// this build does not know about.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims, err := parse(cfg, raw, jwt.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid user role %q", claims.Role)
	}
	return claims, nil
}

// ParseAccessTokenAllowExpired checks only the signature. Refresh uses it to
// recover the session id from a token that has already lapsed.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parse(cfg, raw, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, raw string, opts ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errMissingSecret
	}
	opts = append(opts, jwt.WithValidMethods([]string{signingMethod.Alg()}))

	claims := new(AccessTokenClaims)
	secret := []byte(cfg.Secret)
	if _, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}
