package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

// DB abstracts the pgx pool for testing.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores bookings and time slots in PostgreSQL. Writes
// that touch a provider's date take a transaction-scoped advisory lock on
// that key; the unique index on time_slots(provider_id, date, start_time)
// backs it up.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository wraps a pgx pool (or any DB, such as pgxmock).
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const bookingColumns = `id, customer_id, provider_id, service_ids, date, start_time, end_time, status, source,
		payment_amount, payment_method, payment_status, paid_at, created_at, updated_at`

const slotColumns = `id, provider_id, date, start_time, end_time, is_available, is_blocked, booking_id`

const lockProviderDate = `SELECT pg_advisory_xact_lock(hashtext($1))`

func (r *PostgresRepository) Reserve(ctx context.Context, b *Booking, check OccupancyCheck) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin reserve: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockProviderDate, lockKey(b.ProviderID, b.Date)); err != nil {
		return nil, fmt.Errorf("bookings: lock provider date: %w", err)
	}
	slots, err := listSlots(ctx, tx, b.ProviderID, b.Date)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(slots); err != nil {
			return nil, err
		}
	}

	id := b.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, customer_id, provider_id, service_ids, date, start_time, end_time, status, source,
			payment_amount, payment_method, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+bookingColumns,
		id, b.CustomerID, b.ProviderID, b.ServiceIDs, b.Date.Time(), b.StartTime.String(), b.EndTime.String(),
		string(b.Status), string(b.Source), b.Payment.Amount, string(b.Payment.Method), string(b.Payment.Status),
	)
	stored, err := scanBooking(row)
	if err != nil {
		return nil, fmt.Errorf("bookings: insert booking: %w", err)
	}

	var slotID string
	err = tx.QueryRow(ctx, `
		INSERT INTO time_slots (id, provider_id, date, start_time, end_time, is_available, is_blocked, booking_id)
		VALUES ($1, $2, $3, $4, $5, false, false, $6)
		ON CONFLICT (provider_id, date, start_time) DO UPDATE
		SET end_time = EXCLUDED.end_time, is_available = false, booking_id = EXCLUDED.booking_id, updated_at = now()
		WHERE time_slots.is_available AND NOT time_slots.is_blocked AND time_slots.booking_id IS NULL
		RETURNING id`,
		uuid.NewString(), b.ProviderID, b.Date.Time(), b.StartTime.String(), b.EndTime.String(), stored.ID,
	).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("bookings: reserve slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("bookings: commit reserve: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.PartyID != "" {
		args = append(args, filter.PartyID)
		where = append(where, fmt.Sprintf("(customer_id = $%d OR provider_id = $%d)", len(args), len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From.Time())
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To.Time())
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, start_time`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan list: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status, release bool) (*Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns, id, string(from), string(to)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleStatus
		}
		return nil, fmt.Errorf("bookings: update status: %w", err)
	}

	if release {
		if _, err := tx.Exec(ctx, lockProviderDate, lockKey(b.ProviderID, b.Date)); err != nil {
			return nil, fmt.Errorf("bookings: lock provider date: %w", err)
		}
		if err := releaseSlot(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit status update: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) UpdatePayment(ctx context.Context, id string, payment Payment) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `
		UPDATE bookings SET payment_method = $2, payment_status = $3, paid_at = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, id, string(payment.Method), string(payment.Status), payment.PaidAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: update payment: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bookings: begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		providerID string
		day        time.Time
	)
	if err := tx.QueryRow(ctx, `SELECT provider_id, date FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&providerID, &day); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("bookings: load for delete: %w", err)
	}
	if _, err := tx.Exec(ctx, lockProviderDate, lockKey(providerID, scheduling.DateOf(day))); err != nil {
		return fmt.Errorf("bookings: lock provider date: %w", err)
	}
	if err := releaseSlot(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("bookings: delete: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bookings: commit delete: %w", err)
	}
	return nil
}

func releaseSlot(ctx context.Context, tx pgx.Tx, bookingID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE time_slots SET is_available = true, booking_id = NULL, updated_at = now()
		WHERE booking_id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("bookings: release slot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSlots(ctx context.Context, providerID string, date scheduling.Date) ([]scheduling.TimeSlot, error) {
	return listSlots(ctx, r.db, providerID, date)
}

func listSlots(ctx context.Context, q querier, providerID string, date scheduling.Date) ([]scheduling.TimeSlot, error) {
	rows, err := q.Query(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE provider_id = $1 AND date = $2
		ORDER BY start_time`, providerID, date.Time())
	if err != nil {
		return nil, fmt.Errorf("bookings: list slots: %w", err)
	}
	defer rows.Close()

	var out []scheduling.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan slot: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Block(ctx context.Context, slot scheduling.TimeSlot, check OccupancyCheck) (scheduling.TimeSlot, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return scheduling.TimeSlot{}, fmt.Errorf("bookings: begin block: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, lockProviderDate, lockKey(slot.ProviderID, slot.Date)); err != nil {
		return scheduling.TimeSlot{}, fmt.Errorf("bookings: lock provider date: %w", err)
	}
	slots, err := listSlots(ctx, tx, slot.ProviderID, slot.Date)
	if err != nil {
		return scheduling.TimeSlot{}, err
	}
	if check != nil {
		if err := check(slots); err != nil {
			return scheduling.TimeSlot{}, err
		}
	}

	stored, err := scanSlot(tx.QueryRow(ctx, `
		INSERT INTO time_slots (id, provider_id, date, start_time, end_time, is_available, is_blocked, booking_id)
		VALUES ($1, $2, $3, $4, $5, true, true, NULL)
		ON CONFLICT (provider_id, date, start_time) DO UPDATE
		SET end_time = EXCLUDED.end_time, is_blocked = true, updated_at = now()
		WHERE time_slots.is_available AND NOT time_slots.is_blocked AND time_slots.booking_id IS NULL
		RETURNING `+slotColumns,
		uuid.NewString(), slot.ProviderID, slot.Date.Time(), slot.StartTime.String(), slot.EndTime.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return scheduling.TimeSlot{}, ErrSlotTaken
		}
		return scheduling.TimeSlot{}, fmt.Errorf("bookings: insert block: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return scheduling.TimeSlot{}, fmt.Errorf("bookings: commit block: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) Unblock(ctx context.Context, providerID, slotID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM time_slots
		WHERE id = $1 AND provider_id = $2 AND is_blocked AND booking_id IS NULL`, slotID, providerID)
	if err != nil {
		return fmt.Errorf("bookings: unblock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                            Booking
		day                          time.Time
		start, end, status, source   string
		paymentMethod, paymentStatus string
	)
	if err := row.Scan(
		&b.ID, &b.CustomerID, &b.ProviderID, &b.ServiceIDs, &day, &start, &end, &status, &source,
		&b.Payment.Amount, &paymentMethod, &paymentStatus, &b.Payment.PaidAt, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if b.StartTime, err = scheduling.ParseClock(start); err != nil {
		return nil, err
	}
	if b.EndTime, err = scheduling.ParseClock(end); err != nil {
		return nil, err
	}
	b.Date = scheduling.DateOf(day)
	b.Status = Status(status)
	b.Source = Source(source)
	b.Payment.Method = PaymentMethod(paymentMethod)
	b.Payment.Status = PaymentStatus(paymentStatus)
	return &b, nil
}

func scanSlot(row pgx.Row) (scheduling.TimeSlot, error) {
	var (
		s          scheduling.TimeSlot
		day        time.Time
		start, end string
	)
	if err := row.Scan(&s.ID, &s.ProviderID, &day, &start, &end, &s.IsAvailable, &s.IsBlocked, &s.BookingID); err != nil {
		return scheduling.TimeSlot{}, err
	}
	var err error
	if s.StartTime, err = scheduling.ParseClock(start); err != nil {
		return scheduling.TimeSlot{}, err
	}
	if s.EndTime, err = scheduling.ParseClock(end); err != nil {
		return scheduling.TimeSlot{}, err
	}
	s.Date = scheduling.DateOf(day)
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
