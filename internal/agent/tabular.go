package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/memory"
	"github.com/sells-group/agent-cli/internal/model"
	"github.com/sells-group/agent-cli/internal/plot"
	"github.com/sells-group/agent-cli/internal/table"
)

const tabularSystem = `Você é um agente de EDA. SEMPRE use ferramentas para obter números e figuras; só depois escreva a análise qualitativa. Em cada resposta, siga esta ordem:
1) Resultados objetivos (provenientes das ferramentas);
2) Insights: interpretação do que os números sugerem;
3) Limitações/cautelas (ex.: amostragem, outliers, correlação≠causalidade, data leakage);
4) Próximos passos (2–3 sugestões práticas de análise/modelagem);
Quando detectar achado importante (ex.: classe minoritária < 1%, correlações fortes, forte assimetria), inclua no FINAL da resposta uma linha exatamente no formato: Conclusão salva: "<texto conciso>".
NÃO chame 'describe_data' a menos que o usuário peça explicitamente por 'resumo/describe/overview/sumário/shape/estatísticas'. Se a pergunta for sobre tipos (numérico vs categórico), use 'schema_info'.`

// noToolsGuidance is returned when the model answers without calling any
// tool: the factual phase produced nothing, so the user is pointed at more
// specific phrasings instead.
const noToolsGuidance = "O agente não chamou ferramentas. Especifique a coluna/ação, por exemplo: " +
	"'Quais são os tipos de dados?' (schema_info), " +
	"'Qual é o balanceamento da coluna Class?' (class_balance), " +
	"ou 'Faça um histograma de Amount' (histogram)."

// Tabular is the exploratory-data-analysis agent over one loaded CSV. An
// invocation runs one tool round and, unless concise output was requested,
// one tool-free narrative round over the factual results.
type Tabular struct {
	loop *Loop
	mem  *memory.Store
}

// TabularConfig carries the model parameters for the tabular agent.
type TabularConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// NewTabular wires the EDA tool registry over the given table and
// conclusion store.
func NewTabular(client llm.Client, tbl *table.Table, mem *memory.Store, renderer plot.Renderer, cfg TabularConfig) *Tabular {
	reg := NewRegistry()
	registerTabularTools(reg, tbl, mem, renderer)

	return &Tabular{
		loop: NewLoop(client, reg, LoopConfig{
			Model:          cfg.Model,
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
			MaxRounds:      1,
			NarrativePhase: true,
		}),
		mem: mem,
	}
}

// Ask answers one question about the dataset. Concise skips the narrative
// round and returns only the factual tool output.
func (t *Tabular) Ask(ctx context.Context, prompt string, concise bool) (*model.AskResult, error) {
	scratch := &Scratchpad{Prompt: prompt}
	res, err := t.loop.Run(ctx, tabularSystem, prompt, scratch, concise)
	if err != nil {
		return nil, err
	}

	out := &model.AskResult{Tables: res.Tables, Images: res.Images}
	if res.ToolsCalled == 0 {
		out.Text = noToolsGuidance
		return out, nil
	}

	out.Text = strings.TrimSpace(res.ToolText)
	if res.Narrative != "" {
		out.Text = strings.TrimSpace(out.Text + "\n\n" + res.Narrative)
	}

	// Auto-persist a conclusion the model marked with the sentinel line.
	if conclusion, ok := ParseConclusion(out.Text); ok {
		if err := t.mem.Add(conclusion); err != nil {
			zap.L().Warn("conclusion auto-save failed", zap.Error(err))
		}
	}
	return out, nil
}

func registerTabularTools(reg *Registry, tbl *table.Table, mem *memory.Store, renderer plot.Renderer) {
	reg.Register(Handler{
		Name:        "describe_data",
		Description: "Descreve o dataset carregado: shape, dtypes, nulls e estatísticas numéricas básicas.",
		Schema:      llm.Schema{Properties: map[string]any{}},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return describeData(tbl)
		},
	})

	reg.Register(Handler{
		Name:        "value_counts",
		Description: "Retorna value counts de uma coluna e opcionalmente desenha um barplot.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"column": map[string]any{"type": "string"},
				"top":    map[string]any{"type": "integer", "default": 20, "minimum": 1},
				"plot":   map[string]any{"type": "boolean", "default": true},
			},
			Required: []string{"column"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return valueCounts(tbl, args.String("column", ""), args.Int("top", 20))
		},
	})

	reg.Register(Handler{
		Name:        "histogram",
		Description: "Plota histograma de uma coluna numérica.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"column":    map[string]any{"type": "string"},
				"bins":      map[string]any{"type": "integer", "default": 30, "minimum": 1},
				"log_scale": map[string]any{"type": "boolean", "default": false},
			},
			Required: []string{"column"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return histogram(tbl, renderer, args.String("column", ""), args.Int("bins", 30), args.Bool("log_scale", false))
		},
	})

	reg.Register(Handler{
		Name:        "corr_matrix",
		Description: "Calcula matriz de correlação e desenha um heatmap simples.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"method": map[string]any{"type": "string", "enum": []string{"pearson", "spearman"}, "default": "pearson"},
			},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return corrMatrix(tbl, renderer, args.String("method", "pearson"))
		},
	})

	reg.Register(Handler{
		Name: "groupby_aggregate",
		Description: "Agrupa por colunas e aplica agregações. Pode receber 'aggregations' diretamente OU 'columns' + 'stats' " +
			"(ex.: columns=['Amount'], stats=['mean','std']). Se 'by' não for passado, aplica agregações no dataset inteiro (sem groupby).",
		Schema: llm.Schema{
			Properties: map[string]any{
				"by":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
				"aggregations": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
				"columns":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"stats": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "enum": []string{"mean", "std", "sum", "count", "min", "max", "median"}},
				},
				"sort_by":   map[string]any{"type": "string"},
				"ascending": map[string]any{"type": "boolean", "default": true},
				"limit":     map[string]any{"type": "integer", "default": 50, "minimum": 1},
			},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return groupbyAggregate(tbl, scratch.Prompt, args)
		},
	})

	reg.Register(Handler{
		Name:        "store_conclusions",
		Description: "Armazena uma conclusão textual relevante sobre o dataset.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"text": map[string]any{"type": "string"},
			},
			Required: []string{"text"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			if err := mem.Add(args.String("text", "")); err != nil {
				return Outcome{Text: fmt.Sprintf("Falha ao armazenar conclusão: %s", err)}
			}
			return Outcome{Text: "Conclusão armazenada."}
		},
	})

	reg.Register(Handler{
		Name:        "get_conclusions",
		Description: "Recupera conclusões salvas até o momento.",
		Schema:      llm.Schema{Properties: map[string]any{}},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			md, err := mem.Markdown()
			if err != nil {
				return Outcome{Text: fmt.Sprintf("Falha ao ler conclusões: %s", err)}
			}
			return Outcome{Text: md}
		},
	})

	reg.Register(Handler{
		Name:        "compute_stat",
		Description: "Calcula uma estatística simples (mean, median, std, min, max, count) para uma coluna.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"column": map[string]any{"type": "string"},
				"stat":   map[string]any{"type": "string", "enum": []string{"mean", "median", "std", "min", "max", "count"}},
			},
			Required: []string{"column", "stat"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return computeStat(tbl, args.String("column", ""), args.String("stat", ""))
		},
	})

	reg.Register(Handler{
		Name:        "schema_info",
		Description: "Lista colunas numéricas e categóricas do dataset (apenas tipos, sem estatísticas).",
		Schema: llm.Schema{
			Properties: map[string]any{
				"show_examples": map[string]any{"type": "boolean", "default": false},
			},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return schemaInfo(tbl, args.Bool("show_examples", false))
		},
	})

	reg.Register(Handler{
		Name:        "class_balance",
		Description: "Mostra contagem e proporção das classes de uma coluna alvo, para avaliar desbalanceamento.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"target":    map[string]any{"type": "string", "default": "Class"},
				"normalize": map[string]any{"type": "boolean", "default": true},
				"top":       map[string]any{"type": "integer", "default": 20, "minimum": 1},
			},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			return classBalance(tbl, args.String("target", "Class"), args.Int("top", 20))
		},
	})
}

func describeData(tbl *table.Table) Outcome {
	cols := tbl.Columns()
	nulls := tbl.NullCounts()

	types := make([]string, 0, len(cols))
	nullParts := make([]string, 0, len(cols))
	for _, c := range cols {
		types = append(types, fmt.Sprintf("%s: %s", c, tbl.TypeOf(c)))
		nullParts = append(nullParts, fmt.Sprintf("%s: %d", c, nulls[c]))
	}

	text := fmt.Sprintf("Shape: %d linhas x %d colunas\n\nTipos: {%s}\n\nNulls: {%s}",
		tbl.Rows(), tbl.Cols(), strings.Join(types, ", "), strings.Join(nullParts, ", "))
	return Outcome{Text: text, Tables: []string{tbl.Describe()}}
}

func schemaInfo(tbl *table.Table, showExamples bool) Outcome {
	numeric := tbl.NumericColumns()
	isNumeric := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		isNumeric[c] = true
	}
	var categorical []string
	for _, c := range tbl.Columns() {
		if !isNumeric[c] {
			categorical = append(categorical, c)
		}
	}

	records := [][]string{{"column", "type"}}
	for _, c := range numeric {
		records = append(records, []string{c, "numeric"})
	}
	for _, c := range categorical {
		records = append(records, []string{c, "categorical"})
	}

	out := Outcome{Tables: []string{table.Render(records)}}
	if showExamples && len(categorical) > 0 {
		limit := len(categorical)
		if limit > 10 {
			limit = 10
		}
		var parts []string
		for _, c := range categorical[:limit] {
			parts = append(parts, fmt.Sprintf("%s: %v", c, tbl.CategoryExamples(c, 5)))
		}
		out.Text = fmt.Sprintf("Exemplos (categorias – até 5 por coluna): {%s}", strings.Join(parts, ", "))
	}
	return out
}

func valueCounts(tbl *table.Table, column string, top int) Outcome {
	if !tbl.Has(column) {
		return Outcome{Text: fmt.Sprintf("Coluna '%s' não encontrada.", column)}
	}
	vcs, err := tbl.ValueCounts(column, top)
	if err != nil {
		return Outcome{Text: fmt.Sprintf("Falha em value counts: %s", err)}
	}

	records := [][]string{{column, "count"}}
	for _, vc := range vcs {
		records = append(records, []string{vc.Value, strconv.Itoa(vc.Count)})
	}
	return Outcome{
		Text:   fmt.Sprintf("Top %d valores em '%s'.", len(vcs), column),
		Tables: []string{table.Render(records)},
	}
}

func histogram(tbl *table.Table, renderer plot.Renderer, column string, bins int, logScale bool) Outcome {
	if !tbl.Has(column) {
		return Outcome{Text: fmt.Sprintf("Erro ao plotar histograma: coluna '%s' não encontrada.", column)}
	}
	values, err := tbl.Values(column)
	if err == nil {
		var img string
		img, err = renderer.Histogram(values, column, bins, logScale)
		if err == nil {
			return Outcome{
				Images: []string{img},
				Text:   fmt.Sprintf("Histograma de '%s' (bins=%d, log=%t).", column, bins, logScale),
			}
		}
	}
	return Outcome{Text: fmt.Sprintf("Erro ao plotar histograma: %s", err)}
}

func corrMatrix(tbl *table.Table, renderer plot.Renderer, method string) Outcome {
	m, err := plot.Correlation(tbl, method)
	if err == nil {
		var img string
		img, err = renderer.CorrHeatmap(m, method)
		if err == nil {
			return Outcome{
				Images: []string{img},
				Text:   fmt.Sprintf("Matriz de correlação (%s).", method),
			}
		}
	}
	return Outcome{Text: fmt.Sprintf("Erro ao calcular correlação: %s", err)}
}

func computeStat(tbl *table.Table, column, statName string) Outcome {
	if !tbl.Has(column) {
		return Outcome{Text: fmt.Sprintf("Coluna '%s' não encontrada.", column)}
	}
	v, err := tbl.Stat(column, statName)
	if err != nil {
		return Outcome{Text: fmt.Sprintf("Falha ao calcular estatística: %s", err)}
	}
	return Outcome{Text: fmt.Sprintf("%s(%s) = %s", statName, column, strconv.FormatFloat(v, 'g', 6, 64))}
}

func classBalance(tbl *table.Table, target string, top int) Outcome {
	if !tbl.Has(target) {
		return Outcome{Text: fmt.Sprintf("Coluna alvo '%s' não encontrada.", target)}
	}
	all, err := tbl.ValueCounts(target, 0)
	if err != nil {
		return Outcome{Text: fmt.Sprintf("Falha no balanceamento: %s", err)}
	}
	if len(all) == 0 {
		return Outcome{Text: fmt.Sprintf("Coluna alvo '%s' está vazia.", target)}
	}

	minority := all[len(all)-1].Proportion
	shown := all
	if top > 0 && top < len(shown) {
		shown = shown[:top]
	}
	records := [][]string{{target, "count", "proportion"}}
	for _, vc := range shown {
		records = append(records, []string{
			vc.Value,
			strconv.Itoa(vc.Count),
			strconv.FormatFloat(vc.Proportion, 'f', 4, 64),
		})
	}
	return Outcome{
		Text:   fmt.Sprintf("Balanceamento de '%s': %d classes. Classe minoritária ≈ %.4f.", target, len(all), minority),
		Tables: []string{table.Render(records)},
	}
}

func groupbyAggregate(tbl *table.Table, prompt string, args Args) Outcome {
	plan, err := tbl.Resolve(table.PlanRequest{
		Aggregations: args.Map("aggregations"),
		Columns:      args.StringSlice("columns"),
		Stats:        args.StringSlice("stats"),
		GroupBy:      args.StringSlice("by"),
		Prompt:       prompt,
	})
	if err != nil {
		if eris.Is(err, table.ErrNoAggregatableColumns) {
			return Outcome{Text: "Não há colunas numéricas para agregação."}
		}
		return Outcome{Text: fmt.Sprintf("Erro no groupby: %s", err)}
	}

	rendered, err := tbl.Execute(plan, table.ExecOptions{
		SortBy:    args.String("sort_by", ""),
		Ascending: args.Bool("ascending", true),
		Limit:     args.Int("limit", table.DefaultLimit),
	})
	if err != nil {
		return Outcome{Text: fmt.Sprintf("Erro no groupby: %s", err)}
	}
	return Outcome{Tables: []string{rendered}}
}
