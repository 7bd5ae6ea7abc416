package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Journal is an append-only operational record of submission attempts. It
// never stores drafts or attachment bytes; only the outcome of each attempt
// and a payload digest, so an operator can correlate a user report with what
// actually left the service. All writes are best-effort and nil-safe: the
// journal being down never blocks a submission.
type Journal struct{ DB *sql.DB }

func Open(dsn string) (*Journal, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Journal{DB: db}, nil
}

func (j *Journal) Ping(ctx context.Context) error { return j.DB.PingContext(ctx) }

func (j *Journal) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE TABLE IF NOT EXISTS submission_attempts (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            session_id      TEXT NOT NULL,
            entity          TEXT NOT NULL,
            entity_id       BIGINT,
            outcome         TEXT NOT NULL,
            server_message  TEXT,
            payload_sha256  TEXT NOT NULL,
            part_count      INTEGER NOT NULL DEFAULT 0,
            bytes_total     BIGINT NOT NULL DEFAULT 0,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session ON submission_attempts(session_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_entity ON submission_attempts(entity, entity_id);`,
	}
	for _, q := range stmts {
		if _, err := j.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

type Attempt struct {
	SessionID     string
	Entity        string
	EntityID      sql.NullInt64
	Outcome       string // "accepted" | "rejected" | "transport_error"
	ServerMessage sql.NullString
	PayloadBody   []byte
	PartCount     int
}

func (j *Journal) Enabled() bool { return j != nil && j.DB != nil }

func (j *Journal) Record(ctx context.Context, a Attempt) error {
	if !j.Enabled() {
		return nil
	}
	sum := sha256.Sum256(a.PayloadBody)
	_, err := j.DB.ExecContext(ctx, `
        INSERT INTO submission_attempts (session_id, entity, entity_id, outcome, server_message, payload_sha256, part_count, bytes_total)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.SessionID, a.Entity, a.EntityID, a.Outcome, a.ServerMessage,
		hex.EncodeToString(sum[:]), a.PartCount, int64(len(a.PayloadBody)),
	)
	return err
}
