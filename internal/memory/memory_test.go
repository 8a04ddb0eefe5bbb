package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "mem.jsonl"))
	require.NoError(t, err)
	return st
}

func TestStore_RoundTrip(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.Add("T1"))
	require.NoError(t, st.Add("T2"))

	items, err := st.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, items)
}

func TestStore_EmptyRendersPlaceholder(t *testing.T) {
	st := newTestStore(t)

	md, err := st.Markdown()
	require.NoError(t, err)
	assert.Equal(t, NoConclusionsPlaceholder, md)
}

func TestStore_Markdown(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Add("classe minoritária < 1%"))
	require.NoError(t, st.Add("Amount fortemente assimétrico"))

	md, err := st.Markdown()
	require.NoError(t, err)
	assert.Equal(t, "- classe minoritária < 1%\n- Amount fortemente assimétrico", md)
}

func TestStore_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mem.jsonl")
	content := `{"text":"ok1"}
not json at all
{"text":""}
{"other":"key"}
{"text":"ok2"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st, err := NewStore(path)
	require.NoError(t, err)

	items, err := st.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok1", "ok2"}, items)
}

func TestStore_Clear(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Add("T1"))
	require.NoError(t, st.Clear())

	items, err := st.All()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_UnicodeSurvives(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Add("correlação ≈ 0.9 entre V1 e V2"))

	items, err := st.All()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "correlação ≈ 0.9 entre V1 e V2", items[0])
}
