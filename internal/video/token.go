package video

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// apiToken mints the short-lived project JWT that authenticates REST calls.
func (c *Client) apiToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.apiKey,
		"ist": "project",
		"iat": now.Unix(),
		"exp": now.Add(3 * time.Minute).Unix(),
		"jti": uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secret))
}

// GenerateToken mints a client access token scoped to one session. The token
// embeds the role and display name and expires after the configured TTL
// (24h by default). Pure value construction, no provider call.
func (c *Client) GenerateToken(sessionID string, role Role, displayName string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("video: session id required for token")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":             c.apiKey,
		"ist":             "project",
		"session_id":      sessionID,
		"role":            string(role),
		"scope":           "session.connect",
		"connection_data": displayName,
		"iat":             now.Unix(),
		"exp":             now.Add(c.tokenTTL).Unix(),
		"nonce":           uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secret))
}
