// Package table wraps a gota dataframe behind the accessors the tabular
// agent tools need, and implements the aggregation planner.
package table

import (
	"io"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// Table is an immutable, column-typed view over a loaded CSV.
type Table struct {
	df dataframe.DataFrame
}

// FromCSV parses CSV data with type inference.
func FromCSV(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return nil, eris.Wrap(df.Err, "table: read csv")
	}
	return &Table{df: df}, nil
}

// FromDataFrame wraps an existing dataframe.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, eris.Wrap(df.Err, "table: dataframe")
	}
	return &Table{df: df}, nil
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.df.Nrow() }

// Cols returns the column count.
func (t *Table) Cols() int { return t.df.Ncol() }

// Columns returns column names in table order.
func (t *Table) Columns() []string { return t.df.Names() }

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	for _, c := range t.df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// IsNumeric reports whether a column holds numeric (or boolean) values.
func (t *Table) IsNumeric(name string) bool {
	names := t.df.Names()
	types := t.df.Types()
	for i, c := range names {
		if c == name {
			return numericType(types[i])
		}
	}
	return false
}

// NumericColumns returns the numeric column names in table order.
func (t *Table) NumericColumns() []string {
	names := t.df.Names()
	types := t.df.Types()
	var out []string
	for i, c := range names {
		if numericType(types[i]) {
			out = append(out, c)
		}
	}
	return out
}

// TypeOf returns "numeric" or "categorical" for a column, or "" if absent.
func (t *Table) TypeOf(name string) string {
	names := t.df.Names()
	types := t.df.Types()
	for i, c := range names {
		if c == name {
			if numericType(types[i]) {
				return "numeric"
			}
			return "categorical"
		}
	}
	return ""
}

func numericType(tp series.Type) bool {
	return tp == series.Int || tp == series.Float || tp == series.Bool
}

// NullCounts returns per-column counts of missing values.
func (t *Table) NullCounts() map[string]int {
	out := make(map[string]int, t.df.Ncol())
	for _, name := range t.df.Names() {
		s := t.df.Col(name)
		n := 0
		for _, isNaN := range s.IsNaN() {
			if isNaN {
				n++
			}
		}
		out[name] = n
	}
	return out
}

// Values returns a column coerced to float64 with missing and unparsable
// entries dropped.
func (t *Table) Values(name string) ([]float64, error) {
	s := t.df.Col(name)
	if s.Err != nil {
		return nil, eris.Wrapf(s.Err, "table: column %q", name)
	}
	raw := s.Float()
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Floats returns a column coerced to float64 with missing and unparsable
// entries kept as NaN, preserving row alignment across columns.
func (t *Table) Floats(name string) ([]float64, error) {
	s := t.df.Col(name)
	if s.Err != nil {
		return nil, eris.Wrapf(s.Err, "table: column %q", name)
	}
	return s.Float(), nil
}

// Strings returns a column's raw string records.
func (t *Table) Strings(name string) ([]string, error) {
	s := t.df.Col(name)
	if s.Err != nil {
		return nil, eris.Wrapf(s.Err, "table: column %q", name)
	}
	return s.Records(), nil
}

// Stat computes a single named statistic over a column, coercing values to
// numeric and ignoring entries that do not parse.
func (t *Table) Stat(name, statName string) (float64, error) {
	vals, err := t.Values(name)
	if err != nil {
		return 0, err
	}
	if statName == "count" {
		return float64(len(vals)), nil
	}
	if len(vals) == 0 {
		return 0, eris.Errorf("table: column %q has no numeric values", name)
	}

	switch statName {
	case "mean":
		return stat.Mean(vals, nil), nil
	case "std":
		return stat.StdDev(vals, nil), nil
	case "median":
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil), nil
	case "sum":
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		return sum, nil
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	default:
		return 0, eris.Errorf("table: unknown statistic %q", statName)
	}
}

// ValueCount is one entry of a value-counts result.
type ValueCount struct {
	Value      string
	Count      int
	Proportion float64
}

// ValueCounts tallies distinct values of a column, most frequent first.
// Ties keep first-seen order. Top limits the result when positive.
func (t *Table) ValueCounts(name string, top int) ([]ValueCount, error) {
	records, err := t.Strings(name)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range records {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	out := make([]ValueCount, 0, len(order))
	total := len(records)
	for _, v := range order {
		vc := ValueCount{Value: v, Count: counts[v]}
		if total > 0 {
			vc.Proportion = float64(counts[v]) / float64(total)
		}
		out = append(out, vc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })

	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out, nil
}

// Describe renders the dataframe's summary statistics as a text table.
func (t *Table) Describe() string {
	return renderRecords(t.df.Describe().Records())
}

// CategoryExamples returns up to max distinct values for a categorical
// column, in first-seen order.
func (t *Table) CategoryExamples(name string, max int) []string {
	records, err := t.Strings(name)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range records {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= max {
			break
		}
	}
	return out
}
