package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/fiscal"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveInvoice(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fields := fiscal.Fields{
		DocumentType: fiscal.DocDANFE,
		IssuerTaxID:  "12.345.678/0001-95",
		TotalValue:   "1.234,56",
	}
	_, report := fiscal.ValidateAndScore(fields)

	saved, err := st.SaveInvoice(ctx, fields, report)
	require.NoError(t, err)
	assert.Equal(t, "ok", saved.Status)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestSQLite_ListInvoices(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f1 := fiscal.Fields{DocumentType: fiscal.DocDANFE, IssuerName: "Empresa A"}
	f2 := fiscal.Fields{DocumentType: fiscal.DocNFSe, IssuerName: "Empresa B"}
	_, r1 := fiscal.ValidateAndScore(f1)
	_, r2 := fiscal.ValidateAndScore(f2)

	_, err := st.SaveInvoice(ctx, f1, r1)
	require.NoError(t, err)
	_, err = st.SaveInvoice(ctx, f2, r2)
	require.NoError(t, err)

	invoices, err := st.ListInvoices(ctx, 10)
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	names := []string{invoices[0].Fields.IssuerName, invoices[1].Fields.IssuerName}
	assert.ElementsMatch(t, []string{"Empresa A", "Empresa B"}, names)
	assert.Equal(t, 0.4, invoices[0].Report.ConfidenceScore)
}

func TestSQLite_ListInvoicesEmpty(t *testing.T) {
	st := newTestStore(t)

	invoices, err := st.ListInvoices(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestSQLite_ListInvoicesLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.SaveInvoice(ctx, fiscal.Fields{}, fiscal.Report{})
		require.NoError(t, err)
	}

	invoices, err := st.ListInvoices(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}
