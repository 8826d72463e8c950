// Package identity carries the authenticated caller through a request.
package identity

import (
	"context"
	"errors"
	"strings"
)

// Role is the caller's relationship to the booking domain.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// ErrInvalidActor is returned when an actor has no id or an unknown role.
var ErrInvalidActor = errors.New("identity: invalid actor")

// Actor is the explicit capability passed into every lifecycle operation.
type Actor struct {
	ID   string
	Role Role
}

// ParseRole normalizes a role claim.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleProvider:
		return RoleProvider, true
	}
	return "", false
}

// Validate reports whether the actor can be used for authorization decisions.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrInvalidActor
	}
	if _, ok := ParseRole(string(a.Role)); !ok {
		return ErrInvalidActor
	}
	return nil
}

// Normalized returns the actor with its role in canonical form.
func (a Actor) Normalized() Actor {
	if role, ok := ParseRole(string(a.Role)); ok {
		a.Role = role
	}
	return a
}

func (a Actor) IsProvider() bool {
	role, _ := ParseRole(string(a.Role))
	return role == RoleProvider
}

func (a Actor) IsCustomer() bool {
	role, _ := ParseRole(string(a.Role))
	return role == RoleCustomer
}

type ctxKey string

const actorKey ctxKey = "scheduler.actor"

// WithActor stores the actor in context with its role normalized.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor.Normalized())
}

// ActorFromContext extracts the actor if present and valid.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok {
		return Actor{}, false
	}
	return actor, actor.Validate() == nil
}
