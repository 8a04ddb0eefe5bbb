package table

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLimit caps aggregation output rows when the caller gives no limit.
const DefaultLimit = 50

// ErrNoAggregatableColumns means the planner exhausted every fallback:
// nothing explicit, nothing inferable, and no numeric column to default to.
var ErrNoAggregatableColumns = eris.New("table: no numeric columns to aggregate")

// Plan is a resolved aggregation: which columns get which statistics,
// optionally grouped. Single-statistic entries stay scalar because the
// rendered output differs from the one-column many-stats case.
type Plan struct {
	GroupBy      []string
	Aggregations map[string][]string
	// columns preserves resolution order; map iteration is not deterministic.
	columns []string
}

// Columns returns the aggregated column names in resolution order.
func (p Plan) Columns() []string { return p.columns }

// PlanRequest carries everything the model (or the fallback chain) can say
// about a desired aggregation. All fields are optional.
type PlanRequest struct {
	// Aggregations is the explicit column→statistic(s) map; each value is a
	// string or a list of strings, as deserialized from the tool call.
	Aggregations map[string]any
	// Columns and Stats form the shorthand: every named column present in
	// the table gets the full statistic list.
	Columns []string
	Stats   []string
	// Prompt is the raw user request, scanned as a last resort.
	Prompt  string
	GroupBy []string
}

// statVocabulary maps each canonical statistic to the substrings that
// request it, in Portuguese and English. Matching is accent-insensitive.
var statVocabulary = []struct {
	name     string
	keywords []string
}{
	{"mean", []string{"mean", "media", "average"}},
	{"std", []string{"std", "desvio", "deviation"}},
	{"median", []string{"median", "mediana"}},
	{"sum", []string{"sum", "soma"}},
	{"count", []string{"count", "contagem", "contar"}},
	{"min", []string{"min"}},
	{"max", []string{"max"}},
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	out, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return out
}

// Resolve produces exactly one Plan from a possibly-underspecified request.
// Resolution order, first match wins:
//
//  1. the explicit aggregation map, used as-is;
//  2. columns × stats shorthand, restricted to columns present in the table;
//  3. free-text inference: table columns mentioned in the prompt crossed
//     with recognized statistic keywords, numeric columns only;
//  4. first numeric column → mean.
//
// ErrNoAggregatableColumns is returned only when step 4 finds no numeric
// column at all.
func (t *Table) Resolve(req PlanRequest) (Plan, error) {
	plan := Plan{
		GroupBy:      req.GroupBy,
		Aggregations: make(map[string][]string),
	}

	// 1. Explicit map wins verbatim.
	if len(req.Aggregations) > 0 {
		for _, col := range sortedKeys(req.Aggregations) {
			stats := coerceStats(req.Aggregations[col])
			if len(stats) == 0 {
				continue
			}
			plan.set(col, stats)
		}
		if len(plan.columns) > 0 {
			return plan, nil
		}
	}

	// 2. Shorthand: columns × stats.
	if len(req.Columns) > 0 && len(req.Stats) > 0 {
		for _, col := range req.Columns {
			if t.Has(col) {
				plan.set(col, req.Stats)
			}
		}
		if len(plan.columns) > 0 {
			return plan, nil
		}
	}

	// 3. Free-text inference over the prompt.
	prompt := foldAccents(strings.ToLower(req.Prompt))
	if prompt != "" {
		var stats []string
		for _, entry := range statVocabulary {
			for _, kw := range entry.keywords {
				if strings.Contains(prompt, kw) {
					stats = append(stats, entry.name)
					break
				}
			}
		}
		if len(stats) > 0 {
			for _, col := range t.Columns() {
				if t.IsNumeric(col) && strings.Contains(prompt, foldAccents(strings.ToLower(col))) {
					plan.set(col, stats)
				}
			}
		}
		if len(plan.columns) > 0 {
			return plan, nil
		}
	}

	// 4. Default: first numeric column, mean.
	numeric := t.NumericColumns()
	if len(numeric) == 0 {
		return Plan{}, ErrNoAggregatableColumns
	}
	plan.set(numeric[0], []string{"mean"})
	return plan, nil
}

func (p *Plan) set(col string, stats []string) {
	if _, exists := p.Aggregations[col]; !exists {
		p.columns = append(p.columns, col)
	}
	p.Aggregations[col] = append([]string(nil), stats...)
}

// coerceStats accepts the loosely-typed values a tool call carries for one
// aggregation entry: a bare string or a list of strings.
func coerceStats(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Insertion order is lost in a JSON object; sort for determinism.
	sort.Strings(out)
	return out
}

var aggregationTypes = map[string]dataframe.AggregationType{
	"mean":   dataframe.Aggregation_MEAN,
	"std":    dataframe.Aggregation_STD,
	"median": dataframe.Aggregation_MEDIAN,
	"sum":    dataframe.Aggregation_SUM,
	"count":  dataframe.Aggregation_COUNT,
	"min":    dataframe.Aggregation_MIN,
	"max":    dataframe.Aggregation_MAX,
}

// ExecOptions tunes plan execution.
type ExecOptions struct {
	SortBy    string
	Ascending bool
	Limit     int // rows; non-positive disables truncation
}

// Execute runs a resolved plan. With no grouping keys the statistics are
// computed over the whole table, yielding a single-row result. Sort
// failures are swallowed and the unsorted result returned.
func (t *Table) Execute(plan Plan, opts ExecOptions) (string, error) {
	if len(plan.Aggregations) == 0 {
		return "", eris.New("table: empty aggregation plan")
	}

	if len(plan.GroupBy) == 0 {
		return t.executeWhole(plan)
	}
	return t.executeGrouped(plan, opts)
}

func (t *Table) executeWhole(plan Plan) (string, error) {
	header := []string{}
	row := []string{}
	for _, col := range plan.columns {
		for _, statName := range plan.Aggregations[col] {
			v, err := t.Stat(col, statName)
			if err != nil {
				return "", err
			}
			if len(plan.Aggregations[col]) == 1 {
				header = append(header, col)
			} else {
				header = append(header, fmt.Sprintf("%s_%s", col, statName))
			}
			row = append(row, formatFloat(v))
		}
	}
	return renderRecords([][]string{header, row}), nil
}

func (t *Table) executeGrouped(plan Plan, opts ExecOptions) (string, error) {
	groups := t.df.GroupBy(plan.GroupBy...)
	if groups.Err != nil {
		return "", eris.Wrap(groups.Err, "table: group by")
	}

	var typs []dataframe.AggregationType
	var cols []string
	for _, col := range plan.columns {
		for _, statName := range plan.Aggregations[col] {
			typ, ok := aggregationTypes[statName]
			if !ok {
				return "", eris.Errorf("table: unknown statistic %q", statName)
			}
			typs = append(typs, typ)
			cols = append(cols, col)
		}
	}

	agg := groups.Aggregation(typs, cols)
	if agg.Err != nil {
		return "", eris.Wrap(agg.Err, "table: aggregate")
	}

	if opts.SortBy != "" {
		agg = sortBestEffort(agg, opts.SortBy, opts.Ascending)
	}

	if limit := opts.Limit; limit > 0 && agg.Nrow() > limit {
		idx := make([]int, limit)
		for i := range idx {
			idx[i] = i
		}
		agg = agg.Subset(idx)
	}

	return renderRecords(agg.Records()), nil
}

// sortBestEffort sorts by the named column, also trying the aggregated
// "<col>_<STAT>" names the grouping produces. An unknown column leaves the
// input unsorted.
func sortBestEffort(df dataframe.DataFrame, sortBy string, ascending bool) dataframe.DataFrame {
	target := ""
	for _, name := range df.Names() {
		if name == sortBy || strings.HasPrefix(name, sortBy+"_") {
			target = name
			break
		}
	}
	if target == "" {
		return df
	}

	order := dataframe.Sort(target)
	if !ascending {
		order = dataframe.RevSort(target)
	}
	sorted := df.Arrange(order)
	if sorted.Err != nil {
		return df
	}
	return sorted
}
