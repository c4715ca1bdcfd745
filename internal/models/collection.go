package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTimeoutSeconds = 30
	MinTimeoutSeconds     = 1
	MaxTimeoutSeconds     = 300
)

type Collection struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	EnvironmentID   *uuid.UUID `json:"environment_id,omitempty"`
	Variables       []Variable `json:"variables"`
	FollowRedirects bool       `json:"follow_redirects"`
	Timeout         int        `json:"timeout"`
	ParseANSIColors bool       `json:"parse_ansi_colors"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TimeoutSeconds clamps the configured timeout into the range the proxy accepts.
func (c *Collection) TimeoutSeconds() int {
	return ClampTimeout(c.Timeout)
}

// ClampTimeout maps an unset timeout to the default and bounds the rest to
// MinTimeoutSeconds..MaxTimeoutSeconds.
func ClampTimeout(seconds int) int {
	switch {
	case seconds == 0:
		return DefaultTimeoutSeconds
	case seconds < MinTimeoutSeconds:
		return MinTimeoutSeconds
	case seconds > MaxTimeoutSeconds:
		return MaxTimeoutSeconds
	}
	return seconds
}

// Variable is a key/value pair. Keys are only unique inside one merged scope.
type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
