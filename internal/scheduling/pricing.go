package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrNoServices      = errors.New("scheduling: at least one service is required")
	ErrInvalidService  = errors.New("scheduling: service duration must be positive and price non-negative")
	ErrCrossesMidnight = errors.New("scheduling: appointment would end after midnight")
)

// Service is a bookable offering on a provider's menu.
type Service struct {
	ID         string `json:"id"`
	ProviderID string `json:"providerId"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Duration   int    `json:"duration"`
	IsActive   bool   `json:"isActive"`
}

func (s Service) Validate() error {
	if s.Duration <= 0 || s.Price < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidService, s.Name)
	}
	return nil
}

// Quote is the derived time and cost of a service selection.
type Quote struct {
	TotalDuration int      `json:"totalDuration"`
	TotalPrice    int64    `json:"totalPrice"`
	Interval      Interval `json:"interval"`
}

// QuoteServices sums durations and prices and derives the end time from
// start. The appointment must finish within the same day.
func QuoteServices(services []Service, start Clock) (Quote, error) {
	if len(services) == 0 {
		return Quote{}, ErrNoServices
	}
	if !start.Valid() {
		return Quote{}, fmt.Errorf("%w: %d minutes", ErrInvalidClock, int(start))
	}
	var q Quote
	for _, svc := range services {
		if err := svc.Validate(); err != nil {
			return Quote{}, err
		}
		q.TotalDuration += svc.Duration
		q.TotalPrice += svc.Price
	}
	end := start.Add(q.TotalDuration)
	if !end.Valid() {
		return Quote{}, fmt.Errorf("%w: %s + %d minutes", ErrCrossesMidnight, start, q.TotalDuration)
	}
	q.Interval = Interval{Start: start, End: end}
	return q, nil
}
