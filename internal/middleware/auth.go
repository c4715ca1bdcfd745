package middleware

import (
	"strings"

	"github.com/dimitrije/nikode-engine/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const UserIDKey = "user_id"

// AccessTokenParam carries the token for clients that cannot set headers,
// such as a browser EventSource on the event stream.
const AccessTokenParam = "access_token"

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

// Auth rejects requests without a valid token and exposes the caller's id to
// downstream handlers. Collections and environments are scoped by that id.
func Auth(validator TokenValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		token, msg := bearerToken(c)
		if token == "" {
			c.Unauthorized(msg)
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil || claims == nil || claims.UserID == uuid.Nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// bearerToken prefers the Authorization header and falls back to the query
// parameter. The message explains an empty result.
func bearerToken(c *drift.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.QueryParam(AccessTokenParam); token != "" {
			return token, ""
		}
		return "", "missing authorization header"
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization header format"
	}
	return strings.TrimSpace(token), ""
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}
