package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("analysis not found")

// DB wraps the pgx pool used for analysis history.
type DB struct {
	Pool *pgxpool.Pool
}

// AnalysisRecord is one stored analysis. Result holds the JSON payload that
// was returned to the caller.
type AnalysisRecord struct {
	ID              uuid.UUID
	FileName        string
	FileType        string
	MedicationCount int
	Conditions      []string
	Result          []byte
	CreatedAt       time.Time
}

func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// EnsureSchema creates the analyses table when it does not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id               UUID PRIMARY KEY,
			file_name        TEXT NOT NULL,
			file_type        TEXT NOT NULL,
			medication_count INTEGER NOT NULL DEFAULT 0,
			conditions       TEXT[] NOT NULL DEFAULT '{}',
			result           JSONB NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create analyses table: %w", err)
	}
	return nil
}

func (db *DB) SaveAnalysis(ctx context.Context, rec AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Conditions == nil {
		rec.Conditions = []string{}
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO analyses (id, file_name, file_type, medication_count, conditions, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.FileName, rec.FileType, rec.MedicationCount, rec.Conditions, string(rec.Result), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", rec.ID, err)
	}
	return nil
}

func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID) (*AnalysisRecord, error) {
	var (
		rec    AnalysisRecord
		rawID  string
		result string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id::text, file_name, file_type, medication_count, conditions, result::text, created_at
		FROM analyses
		WHERE id = $1
	`, id).Scan(&rawID, &rec.FileName, &rec.FileType, &rec.MedicationCount, &rec.Conditions, &result, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}

	rec.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse analysis id: %w", err)
	}
	rec.Result = []byte(result)
	return &rec, nil
}
