// Package memory implements the session conclusion store: an append-only
// JSONL log of short textual findings the agent decides to keep.
package memory

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// NoConclusionsPlaceholder is rendered when the store is empty.
const NoConclusionsPlaceholder = "_Sem conclusões salvas ainda._"

type record struct {
	Text string `json:"text"`
}

// Store appends conclusions to a JSONL file, one object per line. It is
// session-scoped: a single process owns the file, appends are line-oriented
// and unguarded against concurrent writers.
type Store struct {
	path string
}

// NewStore opens (creating if needed) a conclusion store at path.
func NewStore(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "memory: open %s", path)
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrapf(err, "memory: close %s", path)
	}
	return &Store{path: path}, nil
}

// Add appends one conclusion. Ordering is insertion order.
func (s *Store) Add(text string) error {
	line, err := json.Marshal(record{Text: text})
	if err != nil {
		return eris.Wrap(err, "memory: marshal")
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "memory: open %s", s.path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrap(err, "memory: append")
	}
	return nil
}

// All returns every stored conclusion in insertion order. Malformed lines
// and empty texts are skipped, not reported.
func (s *Store) All() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "memory: open %s", s.path)
	}
	defer f.Close() //nolint:errcheck

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Text != "" {
			out = append(out, rec.Text)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "memory: scan")
	}
	return out, nil
}

// Markdown renders all conclusions as a bullet list, or the fixed
// placeholder when none are stored.
func (s *Store) Markdown() (string, error) {
	items, err := s.All()
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return NoConclusionsPlaceholder, nil
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String(), nil
}

// Clear truncates the store. Called on session reset (new dataset loaded).
func (s *Store) Clear() error {
	if err := os.Truncate(s.path, 0); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "memory: truncate %s", s.path)
	}
	return nil
}
