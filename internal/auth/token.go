package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned by ParseToken for structurally valid but
// expired tokens.
var ErrTokenExpired = errors.New("token expired")

// TokenManager signs and validates session tokens. It is stateless; the
// signing key is read-only after construction.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer, audience string, ttl time.Duration) *TokenManager {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl}
}

// IssueToken signs the claim list into an HS256 JWT. Claims sharing a name
// are encoded as a JSON array under that name, so the duplicate-permitting
// multiset survives the round trip.
func (tm *TokenManager) IssueToken(claims Claims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)

	payload := jwt.MapClaims{
		"iss": tm.issuer,
		"aud": tm.audience,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(expiresAt),
	}
	for _, claim := range claims {
		switch existing := payload[claim.Name].(type) {
		case nil:
			payload[claim.Name] = claim.Value
		case string:
			payload[claim.Name] = []string{existing, claim.Value}
		case []string:
			payload[claim.Name] = append(existing, claim.Value)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates signature, expiry, issuer and audience, and returns
// the claim list. Expired tokens yield ErrTokenExpired.
func (tm *TokenManager) ParseToken(tokenStr string) (Claims, error) {
	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer), jwt.WithAudience(tm.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	payload, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claimsFromPayload(payload), nil
}

// claimsFromPayload flattens the JWT payload back into the claim list.
// Registered timestamp claims are dropped; array values expand into one
// claim per element. Map iteration order is unspecified, which is fine for
// multiset semantics.
func claimsFromPayload(payload jwt.MapClaims) Claims {
	claims := Claims{}
	for name, raw := range payload {
		switch name {
		case "iat", "exp", "nbf":
			continue
		}
		switch value := raw.(type) {
		case string:
			claims.Add(name, value)
		case []interface{}:
			for _, elem := range value {
				claims.Add(name, fmt.Sprintf("%v", elem))
			}
		}
	}
	return claims
}
