// Package persistence stores an audit trail of validation cycles in
// PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// AuditRecord is one completed validation cycle.
type AuditRecord struct {
	OperationID     string    `db:"operation_id"`
	Symbol          string    `db:"symbol"`
	Price           float64   `db:"price"`
	SourceUsed      string    `db:"source_used"`
	FallbackUsed    bool      `db:"fallback_used"`
	QualityScore    float64   `db:"quality_score"`
	Recommendation  string    `db:"recommendation"`
	GuardrailAction string    `db:"guardrail_action"`
	Confidence      float64   `db:"confidence"`
	Corrections     int       `db:"corrections"`
	CreatedAt       time.Time `db:"created_at"`
}

// AuditRepo writes and reads cycle audit rows.
type AuditRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAuditRepo connects to PostgreSQL and verifies the connection.
func NewAuditRepo(dsn string, timeout time.Duration) (*AuditRepo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect audit store: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewAuditRepoFromDB(db, timeout), nil
}

// NewAuditRepoFromDB wraps an existing connection, used by tests.
func NewAuditRepoFromDB(db *sqlx.DB, timeout time.Duration) *AuditRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuditRepo{db: db, timeout: timeout}
}

const insertAuditSQL = `
	INSERT INTO cycle_audit (
		operation_id, symbol, price, source_used, fallback_used,
		quality_score, recommendation, guardrail_action, confidence,
		corrections, created_at
	) VALUES (
		:operation_id, :symbol, :price, :source_used, :fallback_used,
		:quality_score, :recommendation, :guardrail_action, :confidence,
		:corrections, :created_at
	)`

// Record inserts one audit row.
func (r *AuditRepo) Record(ctx context.Context, rec AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertAuditSQL, rec); err != nil {
		return fmt.Errorf("record audit %s: %w", rec.OperationID, err)
	}
	log.Debug().
		Str("operation_id", rec.OperationID).
		Str("symbol", rec.Symbol).
		Float64("quality_score", rec.QualityScore).
		Msg("Audit row recorded")
	return nil
}

// Recent returns the newest rows for a symbol, most recent first.
func (r *AuditRepo) Recent(ctx context.Context, symbol string, limit int) ([]AuditRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	var rows []AuditRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT operation_id, symbol, price, source_used, fallback_used,
		       quality_score, recommendation, guardrail_action, confidence,
		       corrections, created_at
		FROM cycle_audit
		WHERE symbol = $1
		ORDER BY created_at DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("load audit for %s: %w", symbol, err)
	}
	return rows, nil
}

// HaltRate returns the fraction of cycles since the cutoff whose
// recommendation was HALT. Zero cycles reads as zero.
func (r *AuditRepo) HaltRate(ctx context.Context, symbol string, since time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var counts struct {
		Total  int `db:"total"`
		Halted int `db:"halted"`
	}
	err := r.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE recommendation = 'HALT') AS halted
		FROM cycle_audit
		WHERE symbol = $1 AND created_at >= $2`, symbol, since)
	if err != nil {
		return 0, fmt.Errorf("halt rate for %s: %w", symbol, err)
	}
	if counts.Total == 0 {
		return 0, nil
	}
	return float64(counts.Halted) / float64(counts.Total), nil
}

// Close releases the connection pool.
func (r *AuditRepo) Close() error { return r.db.Close() }
