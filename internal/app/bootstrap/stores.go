package bootstrap

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-scheduler/internal/audit"
	"github.com/wolfman30/appointment-scheduler/internal/bookings"
	"github.com/wolfman30/appointment-scheduler/internal/calendar"
	"github.com/wolfman30/appointment-scheduler/internal/catalog"
	"github.com/wolfman30/appointment-scheduler/internal/chat"
	"github.com/wolfman30/appointment-scheduler/internal/directory"
	"github.com/wolfman30/appointment-scheduler/internal/events"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// OutboxStore is written by the booking service and drained by the deliverer.
type OutboxStore interface {
	bookings.EventPublisher
	events.Outbox
}

// AuditStore records lifecycle changes and serves booking history.
type AuditStore interface {
	bookings.Auditor
	bookings.HistoryReader
}

// Stores groups the persistence backends the API binary runs on.
type Stores struct {
	Bookings   bookings.Repository
	Catalog    catalog.Repository
	Directory  directory.Repository
	Hours      calendar.HoursStore
	Outbox     OutboxStore
	Audit      AuditStore
	Transcript chat.TranscriptStore
}

// BuildStores picks Postgres, Redis or SQL-backed stores when the matching
// connection is present and in-memory ones otherwise. Memory stores do not
// survive a restart and only serialize bookings within one process.
func BuildStores(pool *pgxpool.Pool, redisClient *redis.Client, auditDB *sql.DB, transcriptLimit int, logger *logging.Logger) Stores {
	if logger == nil {
		logger = logging.Default()
	}
	if transcriptLimit <= 0 {
		transcriptLimit = 100
	}

	var s Stores
	if pool != nil {
		s.Bookings = bookings.NewPostgresRepository(pool)
		s.Catalog = catalog.NewPostgresRepository(pool)
		s.Directory = directory.NewPostgresRepository(pool)
		s.Outbox = events.NewOutboxStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set; bookings, catalog, directory and outbox are in memory")
		s.Bookings = bookings.NewInMemoryRepository()
		s.Catalog = catalog.NewInMemoryRepository()
		s.Directory = directory.NewInMemoryRepository()
		s.Outbox = events.NewMemoryOutbox()
	}

	if redisClient != nil {
		s.Hours = calendar.NewStore(redisClient)
		s.Transcript = chat.NewRedisTranscriptStore(redisClient, int64(transcriptLimit))
	} else {
		logger.Warn("REDIS_ADDR not set; working hours and chat transcripts are in memory")
		s.Hours = calendar.NewMemoryStore()
		s.Transcript = chat.NewMemoryTranscriptStore(transcriptLimit)
	}

	if auditDB != nil {
		s.Audit = audit.NewService(auditDB)
	} else {
		s.Audit = audit.NewMemoryService()
	}
	return s
}
