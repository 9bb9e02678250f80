package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default session token lifetime
const TokenExpirySession = 24 * time.Hour

// TokenIssuer signs session tokens bound to an account's stable identifier.
// Every issuance path (local registration, OAuth registration,
// authentication) goes through Issue, so the subject claim is always the
// account id and tokens from any path are interchangeable for lookups.
//
// The signing key is process-wide configuration constructed once at startup
// and passed in here - never read from ambient globals.
type TokenIssuer struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

func (t *TokenIssuer) ttl() time.Duration {
	if t.TTL <= 0 {
		return TokenExpirySession
	}
	return t.TTL
}

// Issue signs a session token whose subject is the given account id.
func (t *TokenIssuer) Issue(accountID string) (string, error) {
	if t.SecretKey == "" {
		return "", fmt.Errorf("token issuer has no secret key")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": accountID,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl()).Unix(),
	}
	if t.Issuer != "" {
		claims["iss"] = t.Issuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token and returns its subject, the
// account id it was issued for.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(t.SecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("claims is not a map")
	}
	if t.Issuer != "" {
		if iss, err := claims.GetIssuer(); err != nil || iss != t.Issuer {
			return "", fmt.Errorf("invalid issuer")
		}
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
