// Package catalog manages the services each provider offers.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

var (
	ErrServiceNotFound = errors.New("catalog: service not found")
	ErrInvalidName     = errors.New("catalog: name is required")
)

// Repository stores provider services. Resolve returns only active services
// owned by providerID, in request order; ids that do not qualify are left out.
type Repository interface {
	Create(ctx context.Context, svc scheduling.Service) (scheduling.Service, error)
	ListByProvider(ctx context.Context, providerID string) ([]scheduling.Service, error)
	Resolve(ctx context.Context, providerID string, ids []string) ([]scheduling.Service, error)
	// Lookup returns services in any state, in request order.
	Lookup(ctx context.Context, ids []string) ([]scheduling.Service, error)
	Deactivate(ctx context.Context, providerID, serviceID string) error
}

// CreateRequest is the body of POST /providers/me/services.
type CreateRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Duration int    `json:"duration"`
}

// Service builds a new active service owned by providerID.
func (r CreateRequest) Service(providerID string) (scheduling.Service, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return scheduling.Service{}, ErrInvalidName
	}
	svc := scheduling.Service{
		ProviderID: providerID,
		Name:       name,
		Price:      r.Price,
		Duration:   r.Duration,
		IsActive:   true,
	}
	if err := svc.Validate(); err != nil {
		return scheduling.Service{}, err
	}
	return svc, nil
}
