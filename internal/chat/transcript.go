package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix = "chat:transcript:"
	// transcriptTTL outlives the chat window so a late reader still sees the thread.
	transcriptTTL = 7 * 24 * time.Hour
)

// Message is one line of a booking's chat.
type Message struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"bookingId"`
	SenderID   string    `json:"senderId"`
	SenderRole string    `json:"senderRole"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
}

// TranscriptStore keeps the most recent messages of each booking's chat.
type TranscriptStore interface {
	Append(ctx context.Context, bookingID string, msg Message) error
	List(ctx context.Context, bookingID string, limit int64) ([]Message, error)
}

// RedisTranscriptStore keeps one capped Redis list per booking.
type RedisTranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewRedisTranscriptStore(redisClient *redis.Client, maxMessages int64) *RedisTranscriptStore {
	if redisClient == nil {
		panic("chat: redis client required")
	}
	return &RedisTranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("scheduler.internal.chat.transcript"),
		maxMessages: maxMessages,
	}
}

func transcriptKey(bookingID string) string {
	return transcriptKeyPrefix + bookingID
}

func (s *RedisTranscriptStore) Append(ctx context.Context, bookingID string, msg Message) error {
	if bookingID == "" {
		return errors.New("chat: transcript bookingID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	msg.BookingID = bookingID

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chat: marshal transcript message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "chat.transcript.append")
	defer span.End()

	key := transcriptKey(bookingID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: append transcript message: %w", err)
	}
	return nil
}

// List returns up to limit of the newest messages, oldest first.
func (s *RedisTranscriptStore) List(ctx context.Context, bookingID string, limit int64) ([]Message, error) {
	if bookingID == "" {
		return nil, errors.New("chat: transcript bookingID required")
	}
	ctx, span := s.tracer.Start(ctx, "chat.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(bookingID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: list transcript: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// MemoryTranscriptStore is used when Redis is not configured.
type MemoryTranscriptStore struct {
	mu          sync.Mutex
	maxMessages int
	threads     map[string][]Message
}

func NewMemoryTranscriptStore(maxMessages int) *MemoryTranscriptStore {
	return &MemoryTranscriptStore{maxMessages: maxMessages, threads: make(map[string][]Message)}
}

func (s *MemoryTranscriptStore) Append(ctx context.Context, bookingID string, msg Message) error {
	if bookingID == "" {
		return errors.New("chat: transcript bookingID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	msg.BookingID = bookingID

	s.mu.Lock()
	defer s.mu.Unlock()
	thread := append(s.threads[bookingID], msg)
	if s.maxMessages > 0 && len(thread) > s.maxMessages {
		thread = thread[len(thread)-s.maxMessages:]
	}
	s.threads[bookingID] = thread
	return nil
}

func (s *MemoryTranscriptStore) List(ctx context.Context, bookingID string, limit int64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.threads[bookingID]
	if limit > 0 && int64(len(thread)) > limit {
		thread = thread[int64(len(thread))-limit:]
	}
	return append([]Message{}, thread...), nil
}
