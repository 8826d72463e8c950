// Package calendar stores provider working hours.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// HoursStore reads and writes a provider's weekly hours. A provider that
// never saved hours gets the zero WeeklyHours, which resolves every weekday
// to scheduling.DefaultDayHours.
type HoursStore interface {
	Get(ctx context.Context, providerID string) (scheduling.WeeklyHours, error)
	Set(ctx context.Context, providerID string, week scheduling.WeeklyHours) error
}

// Store keeps weekly hours as JSON in Redis.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("calendar: redis client required")
	}
	return &Store{redis: redisClient}
}

func (s *Store) key(providerID string) string {
	return fmt.Sprintf("calendar:hours:%s", providerID)
}

func (s *Store) Get(ctx context.Context, providerID string) (scheduling.WeeklyHours, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return scheduling.WeeklyHours{}, nil
	}
	if err != nil {
		return scheduling.WeeklyHours{}, fmt.Errorf("calendar: get hours: %w", err)
	}

	var week scheduling.WeeklyHours
	if err := json.Unmarshal(data, &week); err != nil {
		return scheduling.WeeklyHours{}, fmt.Errorf("calendar: unmarshal hours: %w", err)
	}
	return week, nil
}

// Set validates and saves the full week.
func (s *Store) Set(ctx context.Context, providerID string, week scheduling.WeeklyHours) error {
	if err := week.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(week)
	if err != nil {
		return fmt.Errorf("calendar: marshal hours: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(providerID), data, 0).Err(); err != nil {
		return fmt.Errorf("calendar: set hours: %w", err)
	}
	return nil
}

// MemoryStore is the HoursStore used when Redis is not configured.
type MemoryStore struct {
	mu    sync.RWMutex
	hours map[string]scheduling.WeeklyHours
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hours: make(map[string]scheduling.WeeklyHours)}
}

func (s *MemoryStore) Get(ctx context.Context, providerID string) (scheduling.WeeklyHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hours[providerID], nil
}

func (s *MemoryStore) Set(ctx context.Context, providerID string, week scheduling.WeeklyHours) error {
	if err := week.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.hours[providerID] = week
	s.mu.Unlock()
	return nil
}
