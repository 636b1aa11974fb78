package auth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ValidateIdentityToken validates a JWT from the identity provider using its
// JWKS endpoint and returns the claims. baseURL comes from AUTH_BASE_URL.
func ValidateIdentityToken(baseURL, tokenString string) (jwt.MapClaims, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("AUTH_BASE_URL is not set")
	}
	jwksURL := baseURL + "/.well-known/jwks.json"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	expectedIssuer := u.Scheme + "://" + u.Host

	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithIssuer(expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// NameFromClaims returns the trimmed "name" claim, or a fallback.
func NameFromClaims(claims jwt.MapClaims) string {
	name, _ := claims["name"].(string)
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "Player"
	}
	return trimmed
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}

// rejoinTokenTTL bounds how long a dropped player can come back with the
// token alone. The game's own grace timer is the real deadline; the token
// just needs to outlive it.
const rejoinTokenTTL = 2 * time.Hour

// RejoinClaims binds a rejoin token to one player seat in one game.
type RejoinClaims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}

// SignRejoinToken issues an HS256 token letting the holder reclaim a seat.
func SignRejoinToken(secret, gameID, playerID string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("rejoin secret is not configured")
	}
	claims := RejoinClaims{
		GameID:   gameID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(rejoinTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseRejoinToken verifies a rejoin token and returns its claims.
func ParseRejoinToken(secret, tokenString string) (*RejoinClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("rejoin secret is not configured")
	}
	claims := &RejoinClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.GameID == "" || claims.PlayerID == "" {
		return nil, fmt.Errorf("invalid rejoin token")
	}
	return claims, nil
}
