package profilesync

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/pkg/retry"
	"github.com/c360/walletsync/wallet"
)

// PostgresStore is the durable profile store. The current profile lives in
// wallet_label_profiles keyed by address; every superseding write appends
// the previous profile to wallet_label_history.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for dsn and verifies it.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "profilesync", "NewPostgresStore", "open")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Postgres may still be starting when the service comes up.
	if err := retry.Do(ctx, retry.Quick(), func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, err),
			"profilesync", "NewPostgresStore", "ping")
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// ensureSchema creates the profile tables if they do not exist.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS wallet_label_profiles (
			address      TEXT PRIMARY KEY,
			profile      JSONB NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_label_history (
			id           BIGSERIAL PRIMARY KEY,
			address      TEXT NOT NULL,
			profile      JSONB NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS wallet_label_history_address_idx
			ON wallet_label_history (address, generated_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.WrapFatal(err, "profilesync", "ensureSchema", "create table")
		}
	}
	return nil
}

// Get returns the current profile for address.
func (s *PostgresStore) Get(ctx context.Context, address string) (*wallet.LabelProfile, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM wallet_label_profiles WHERE address = $1`, address).Scan(&data)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrProfileNotFound
		}
		return nil, errors.WrapTransient(err, "profilesync", "pgGet", "select profile")
	}

	var profile wallet.LabelProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, errors.WrapInvalid(err, "profilesync", "pgGet", "decode profile")
	}
	return &profile, nil
}

// Update stores profile as current. When saveHistory is true the superseded
// profile is appended to the history table in the same transaction.
func (s *PostgresStore) Update(ctx context.Context, address string, profile *wallet.LabelProfile, saveHistory bool) (*wallet.LabelProfile, error) {
	if profile == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "profilesync", "pgUpdate", "nil profile")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, errors.WrapInvalid(err, "profilesync", "pgUpdate", "encode profile")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WrapTransient(err, "profilesync", "pgUpdate", "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if saveHistory {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO wallet_label_history (address, profile, generated_at)
			 SELECT address, profile, generated_at FROM wallet_label_profiles WHERE address = $1`,
			address)
		if err != nil {
			return nil, errors.WrapTransient(err, "profilesync", "pgUpdate", "archive previous")
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_label_profiles (address, profile, generated_at, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (address) DO UPDATE
		 SET profile = EXCLUDED.profile, generated_at = EXCLUDED.generated_at, updated_at = now()`,
		address, data, profile.GeneratedAt)
	if err != nil {
		return nil, errors.WrapTransient(err, "profilesync", "pgUpdate", "upsert profile")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.WrapTransient(err, "profilesync", "pgUpdate", "commit")
	}
	return profile, nil
}

// History returns the current profile followed by prior snapshots, newest
// first, up to limit entries.
func (s *PostgresStore) History(ctx context.Context, address string, limit int) ([]*wallet.LabelProfile, error) {
	current, err := s.Get(ctx, address)
	if err != nil {
		if stderrors.Is(err, errors.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snapshots := []*wallet.LabelProfile{current}

	historyLimit := maxLocalHistory
	if limit > 0 {
		historyLimit = limit - 1
	}
	if historyLimit <= 0 {
		return snapshots, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT profile FROM wallet_label_history
		 WHERE address = $1 ORDER BY generated_at DESC LIMIT $2`,
		address, historyLimit)
	if err != nil {
		return nil, errors.WrapTransient(err, "profilesync", "pgHistory", "select history")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.WrapTransient(err, "profilesync", "pgHistory", "scan row")
		}
		var profile wallet.LabelProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, errors.WrapInvalid(err, "profilesync", "pgHistory", "decode snapshot")
		}
		snapshots = append(snapshots, &profile)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapTransient(err, "profilesync", "pgHistory", "iterate rows")
	}

	return snapshots, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
