// Package store persists invoice extractions. The contract is append-only:
// records get an id and a creation timestamp, and are never updated or
// deleted.
package store

import (
	"context"
	"time"

	"github.com/sells-group/agent-cli/internal/fiscal"
)

// Invoice is one persisted extraction with its validation report.
type Invoice struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Fields    fiscal.Fields `json:"fields"`
	Report    fiscal.Report `json:"validation_report"`
}

// Saved reports a completed save.
type Saved struct {
	Status    string    `json:"status"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the invoice persistence backend.
type Store interface {
	SaveInvoice(ctx context.Context, fields fiscal.Fields, report fiscal.Report) (*Saved, error)
	ListInvoices(ctx context.Context, limit int) ([]Invoice, error)
	Close() error
}
