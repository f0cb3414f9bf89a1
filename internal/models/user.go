package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrForbidden is returned when a caller without organizer rights reaches an
// organizer-only operation.
var ErrForbidden = errors.New("organizer rights required")

// User is an organizer or juror known to the service
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	ApiKey      string     `json:"-"` // Never serialize
	IsOrganizer bool       `json:"is_organizer"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// MaskedApiKey returns first 8 characters of API key for logging
func (u *User) MaskedApiKey() string {
	if len(u.ApiKey) < 8 {
		return "***"
	}
	return u.ApiKey[:8] + "..."
}

// GenerateApiKey creates a cryptographically random 48-char hex key
func GenerateApiKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// JurorRounds is the juror dashboard payload
type JurorRounds struct {
	Rounds []Round `json:"rounds"`
	User   *User   `json:"user,omitempty"`
}

// AddOrganizerRequest grants organizer rights to a username
type AddOrganizerRequest struct {
	Username string `json:"username"`
}

// OrganizerResponse is returned when organizer rights are granted.
// It carries the API key the organizer authenticates with.
type OrganizerResponse struct {
	User
	ApiKey string `json:"api_key"`
}
