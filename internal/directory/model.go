package directory

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
)

var (
	// ErrPartyNotFound is returned when no record exists for the id
	ErrPartyNotFound = errors.New("directory: party not found")

	// ErrInvalidName is returned when the display name is blank
	ErrInvalidName = errors.New("directory: name is required")

	ErrInvalidEmail = errors.New("directory: email is invalid")
)

// Party is the display record of a customer or provider.
type Party struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email,omitempty"`
	Role      identity.Role `json:"role"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ProfileRequest is the body of PUT /me. The id and role come from the caller.
type ProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate checks and normalizes the request in place.
func (r *ProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}
