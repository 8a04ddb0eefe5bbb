package plot

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/agent-cli/internal/table"
)

// CorrMatrix is a symmetric correlation matrix over named columns.
type CorrMatrix struct {
	Columns []string
	Data    [][]float64
}

// Correlation computes the correlation of every numeric column pair.
// Supported methods: "pearson" and "spearman". Each pair uses only the rows
// where both columns have a value, so missing cells in one column do not
// poison the rest of the matrix. A pair with fewer than two complete rows
// gets NaN.
func Correlation(tbl *table.Table, method string) (CorrMatrix, error) {
	if method != "pearson" && method != "spearman" {
		return CorrMatrix{}, eris.Errorf("plot: unknown correlation method %q", method)
	}

	cols := tbl.NumericColumns()
	if len(cols) < 2 {
		return CorrMatrix{}, eris.New("plot: need at least two numeric columns for correlation")
	}

	series := make([][]float64, len(cols))
	for i, c := range cols {
		vals, err := tbl.Floats(c)
		if err != nil {
			return CorrMatrix{}, err
		}
		series[i] = vals
	}

	m := CorrMatrix{Columns: cols, Data: make([][]float64, len(cols))}
	for i := range cols {
		m.Data[i] = make([]float64, len(cols))
		m.Data[i][i] = 1
	}
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			xs, ys := completePairs(series[i], series[j])
			r := math.NaN()
			if len(xs) >= 2 {
				if method == "spearman" {
					xs, ys = ranks(xs), ranks(ys)
				}
				r = stat.Correlation(xs, ys, nil)
			}
			m.Data[i][j], m.Data[j][i] = r, r
		}
	}
	return m, nil
}

// completePairs keeps the rows where both columns are present.
func completePairs(a, b []float64) (xs, ys []float64) {
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	return xs, ys
}

// ranks converts values to average ranks (ties share the mean rank), the
// transform that turns Pearson into Spearman.
func ranks(vals []float64) []float64 {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

	out := make([]float64, len(vals))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		// Average rank for the tie run [i, j].
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}
