package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"svw.info/meldsolver/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_pools (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	codes      SMALLINT[] NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL
)`

// Postgres stores saved pools in a saved_pools table.
type Postgres struct {
	db *pgxpool.Pool
}

// Connect opens a pool against dsn and makes sure the table exists.
func Connect(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	cfg.MaxConnIdleTime = 10 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := NewPostgres(db)
	if err := p.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{db: db} }

func (s *Postgres) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *Postgres) Close() { s.db.Close() }

func (s *Postgres) Save(ctx context.Context, p *domain.SavedPool) error {
	if p == nil || !validID(p.ID) {
		return ErrInvalidID
	}
	r := toRecord(p)
	codes := make([]int16, len(r.Codes))
	for i, c := range r.Codes {
		codes[i] = int16(c)
	}
	query := `
		INSERT INTO saved_pools (id, name, codes, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, codes = EXCLUDED.codes, notes = EXCLUDED.notes
	`
	_, err := s.db.Exec(ctx, query, r.ID, r.Name, codes, r.Notes, r.CreatedAt)
	return err
}

func (s *Postgres) Load(ctx context.Context, id string) (*domain.SavedPool, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	query := `SELECT id, name, codes, notes, created_at FROM saved_pools WHERE id = $1`
	var r record
	var codes []int16
	err := s.db.QueryRow(ctx, query, id).Scan(&r.ID, &r.Name, &codes, &r.Notes, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load saved pool %s: %w", id, err)
	}
	r.Codes = make([]int, len(codes))
	for i, c := range codes {
		r.Codes[i] = int(c)
	}
	return r.toPool()
}

func (s *Postgres) List(ctx context.Context) ([]domain.SavedPoolMeta, error) {
	query := `
		SELECT id, name, cardinality(codes), created_at
		FROM saved_pools ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedPoolMeta
	for rows.Next() {
		var m domain.SavedPoolMeta
		var n int32
		if err := rows.Scan(&m.ID, &m.Name, &n, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Tiles = int(n)
		out = append(out, m)
	}
	return out, rows.Err()
}
