package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores services in the services table.
type PostgresRepository struct {
	db db
}

func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

const serviceColumns = `id, provider_id, name, price, duration_minutes, is_active`

func (r *PostgresRepository) Create(ctx context.Context, svc scheduling.Service) (scheduling.Service, error) {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO services (id, provider_id, name, price, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+serviceColumns,
		svc.ID, svc.ProviderID, svc.Name, svc.Price, svc.Duration, svc.IsActive)
	stored, err := scanService(row)
	if err != nil {
		return scheduling.Service{}, fmt.Errorf("catalog: insert service: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) ListByProvider(ctx context.Context, providerID string) ([]scheduling.Service, error) {
	return r.query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE provider_id = $1 AND is_active
		ORDER BY name`, providerID)
}

func (r *PostgresRepository) Resolve(ctx context.Context, providerID string, ids []string) ([]scheduling.Service, error) {
	found, err := r.query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE provider_id = $1 AND id = ANY($2) AND is_active`, providerID, ids)
	if err != nil {
		return nil, err
	}
	return inRequestOrder(found, ids), nil
}

func (r *PostgresRepository) Lookup(ctx context.Context, ids []string) ([]scheduling.Service, error) {
	found, err := r.query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return inRequestOrder(found, ids), nil
}

func inRequestOrder(found []scheduling.Service, ids []string) []scheduling.Service {
	byID := make(map[string]scheduling.Service, len(found))
	for _, svc := range found {
		byID[svc.ID] = svc
	}
	out := make([]scheduling.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := byID[id]; ok {
			out = append(out, svc)
		}
	}
	return out
}

func (r *PostgresRepository) Deactivate(ctx context.Context, providerID, serviceID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE services SET is_active = false, updated_at = now()
		WHERE id = $1 AND provider_id = $2 AND is_active`, serviceID, providerID)
	if err != nil {
		return fmt.Errorf("catalog: deactivate service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]scheduling.Service, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query services: %w", err)
	}
	defer rows.Close()

	out := make([]scheduling.Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func scanService(row pgx.Row) (scheduling.Service, error) {
	var svc scheduling.Service
	err := row.Scan(&svc.ID, &svc.ProviderID, &svc.Name, &svc.Price, &svc.Duration, &svc.IsActive)
	return svc, err
}
