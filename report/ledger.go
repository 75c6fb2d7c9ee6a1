package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lexandro/contentsieve/metrics"
)

// ErrUnsupportedLedger is returned for a DSN with an unknown scheme.
var ErrUnsupportedLedger = errors.New("unsupported ledger dsn")

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS sieve_runs (
		run_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		items_seen BIGINT NOT NULL,
		accepted BIGINT NOT NULL,
		duplicates BIGINT NOT NULL,
		quality_failed BIGINT NOT NULL,
		errors BIGINT NOT NULL,
		cancelled BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sieve_entries (
		run_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		quality_score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, entry_id)
	)`,
}

// LedgerRun is one recorded run row.
type LedgerRun struct {
	RunID         string
	Mode          string
	StartedAt     time.Time
	FinishedAt    time.Time
	ItemsSeen     int64
	Accepted      int64
	Duplicates    int64
	QualityFailed int64
	Errors        int64
	Cancelled     bool
}

// Ledger records runs and their accepted entries in SQLite or Postgres.
type Ledger struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// ParseLedgerDSN maps sqlite://path, sqlite:path, postgres:// and
// postgresql:// DSNs to a database/sql driver name and data source.
func ParseLedgerDSN(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return driverSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return driverSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedLedger, dsn)
	}
}

// OpenLedger connects to the ledger database and creates its tables.
func OpenLedger(ctx context.Context, dsn string, logger *zap.Logger) (*Ledger, error) {
	driver, source, err := ParseLedgerDSN(dsn)
	if err != nil {
		return nil, err
	}
	if source == "" {
		return nil, fmt.Errorf("%w: empty data source", ErrUnsupportedLedger)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if driver == driverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to ledger: %w", err)
	}

	l := &Ledger{db: db, driver: driver, logger: logger}
	for _, stmt := range ledgerSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating ledger schema: %w", err)
		}
	}
	return l, nil
}

func (l *Ledger) Name() string { return "ledger" }

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Publish records the run row and its accepted entries in one transaction.
func (l *Ledger) Publish(ctx context.Context, r *Report, _ []string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting ledger transaction: %w", err)
	}
	defer tx.Rollback()

	run := r.Run
	_, err = tx.ExecContext(ctx, l.rebind(`INSERT INTO sieve_runs
		(run_id, mode, started_at, finished_at, items_seen, accepted, duplicates, quality_failed, errors, cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.RunID, run.Mode,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.ItemsSeen, run.Buckets[metrics.BucketOrganized], run.Buckets[metrics.BucketDuplicate],
		run.Buckets[metrics.BucketQualityFailed], run.ErrorCount, run.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}

	insertEntry := l.rebind(`INSERT INTO sieve_entries
		(run_id, entry_id, kind, source, destination, content_hash, quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, it := range r.AcceptedItems() {
		if _, err := tx.ExecContext(ctx, insertEntry,
			run.RunID, it.ID, "file", it.Path, it.Destination, it.ContentHash, it.QualityScore); err != nil {
			return fmt.Errorf("recording item %s: %w", it.ID, err)
		}
	}
	for _, s := range r.AcceptedSamples() {
		if _, err := tx.ExecContext(ctx, insertEntry,
			run.RunID, s.ID, "sample", s.Producer, "", s.ContentHash, s.QualityScore); err != nil {
			return fmt.Errorf("recording sample %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger: %w", err)
	}
	l.logger.Debug("recorded run in ledger", zap.String("runId", run.RunID))
	return nil
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]LedgerRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, l.rebind(`SELECT
		run_id, mode, started_at, finished_at, items_seen, accepted, duplicates, quality_failed, errors, cancelled
		FROM sieve_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []LedgerRun
	for rows.Next() {
		var lr LedgerRun
		var started, finished string
		if err := rows.Scan(&lr.RunID, &lr.Mode, &started, &finished, &lr.ItemsSeen, &lr.Accepted,
			&lr.Duplicates, &lr.QualityFailed, &lr.Errors, &lr.Cancelled); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		lr.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		lr.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, lr)
	}
	return runs, rows.Err()
}

// EntryCount returns the number of accepted entries recorded for a run.
func (l *Ledger) EntryCount(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, l.rebind(`SELECT COUNT(*) FROM sieve_entries WHERE run_id = ?`), runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// rebind rewrites ? placeholders to $N for Postgres.
func (l *Ledger) rebind(query string) string {
	if l.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
