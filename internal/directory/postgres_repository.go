package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
)

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores parties in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Party, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, role, updated_at
		FROM parties
		WHERE id = $1
	`, id)
	p, err := scanParty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPartyNotFound
		}
		return nil, fmt.Errorf("directory: select failed: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, party *Party) (*Party, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO parties (id, name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role, updated_at = now()
		RETURNING id, name, email, role, updated_at
	`, party.ID, party.Name, party.Email, string(party.Role))
	p, err := scanParty(row)
	if err != nil {
		return nil, fmt.Errorf("directory: upsert failed: %w", err)
	}
	return p, nil
}

func scanParty(row pgx.Row) (*Party, error) {
	var (
		p    Party
		role string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Role = identity.Role(role)
	return &p, nil
}
