package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/sprintbot/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the interaction journal.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertInteraction journals one handled message and returns inserted=false
// when the event key is already there.
func (p *PostgresStore) InsertInteraction(ctx context.Context, in models.Interaction) (bool, error) {
	if in.EventKey == "" || in.Intent == "" {
		return false, errors.New("event key and intent required")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	// RETURNING 1 only when inserted; duplicates return no rows.
	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO interactions(id, event_key, channel_id, user_id, text, intent, reply, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (event_key) DO NOTHING
		RETURNING 1
	`, in.ID, in.EventKey, in.ChannelID, in.UserID, in.Text, string(in.Intent), in.Reply, in.CreatedAt).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// RecentInteractions returns the newest entries for userID, newest first.
func (p *PostgresStore) RecentInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, event_key, channel_id, user_id, text, intent, reply, created_at
		FROM interactions
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Interaction{}
	for rows.Next() {
		var (
			in     models.Interaction
			intent string
		)
		if err := rows.Scan(&in.ID, &in.EventKey, &in.ChannelID, &in.UserID, &in.Text, &intent, &in.Reply, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.Intent = models.Intent(intent)
		out = append(out, in)
	}
	return out, rows.Err()
}
