package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/agent-cli/internal/fiscal"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS invoices (
	id                      TEXT PRIMARY KEY,
	created_at              DATETIME NOT NULL,
	fields_json             TEXT NOT NULL,
	validation_report_json  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoices_created_at ON invoices(created_at);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveInvoice appends one extraction record and returns its id and
// creation timestamp.
func (s *SQLiteStore) SaveInvoice(ctx context.Context, fields fiscal.Fields, report fiscal.Report) (*Saved, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal fields")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal report")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invoices (id, created_at, fields_json, validation_report_json) VALUES (?, ?, ?, ?)`,
		id, now, string(fieldsJSON), string(reportJSON),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert invoice")
	}

	return &Saved{Status: "ok", ID: id, CreatedAt: now}, nil
}

// ListInvoices returns the most recent records, newest first.
func (s *SQLiteStore) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, fields_json, validation_report_json FROM invoices
		 ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list invoices")
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		var fieldsJSON, reportJSON string
		if err := rows.Scan(&inv.ID, &inv.CreatedAt, &fieldsJSON, &reportJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan invoice")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &inv.Fields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fields")
		}
		if err := json.Unmarshal([]byte(reportJSON), &inv.Report); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list invoices iterate")
}
