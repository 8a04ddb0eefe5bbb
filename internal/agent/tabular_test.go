package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/memory"
	"github.com/sells-group/agent-cli/internal/plot"
	"github.com/sells-group/agent-cli/internal/table"
)

const edaCSV = `cidade,Amount,Class
SP,10.5,0
RJ,20.0,1
SP,30.5,0
BH,15.0,0`

type fakeRenderer struct{}

func (fakeRenderer) Histogram([]float64, string, int, bool) (string, error) {
	return "img-hist", nil
}

func (fakeRenderer) CorrHeatmap(plot.CorrMatrix, string) (string, error) {
	return "img-corr", nil
}

func edaTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromCSV(strings.NewReader(edaCSV))
	require.NoError(t, err)
	return tbl
}

func edaMemory(t *testing.T) *memory.Store {
	t.Helper()
	mem, err := memory.NewStore(filepath.Join(t.TempDir(), "mem.jsonl"))
	require.NoError(t, err)
	return mem
}

func newTabular(t *testing.T, client llm.Client, mem *memory.Store) *Tabular {
	t.Helper()
	return NewTabular(client, edaTable(t), mem, fakeRenderer{}, TabularConfig{Model: "m", MaxTokens: 1000})
}

func TestTabularNoToolsReturnsGuidance(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		textResponse("resposta solta sem ferramentas"),
	}}
	tab := newTabular(t, client, edaMemory(t))

	res, err := tab.Ask(context.Background(), "me conta algo", false)
	require.NoError(t, err)

	assert.Equal(t, noToolsGuidance, res.Text)
	assert.Empty(t, res.Tables)
	assert.Empty(t, res.Images)
	// The tool menu exposes every EDA tool.
	require.Len(t, client.requests, 1)
	assert.Len(t, client.requests[0].Tools, 10)
}

func TestTabularToolRoundThenNarrative(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "compute_stat", ArgsJSON: `{"column":"Amount","stat":"mean"}`}),
		textResponse("O valor médio sugere transações moderadas."),
	}}
	tab := newTabular(t, client, edaMemory(t))

	res, err := tab.Ask(context.Background(), "qual a média de Amount?", false)
	require.NoError(t, err)

	assert.Contains(t, res.Text, "mean(Amount) = 19")
	assert.Contains(t, res.Text, "transações moderadas")
	require.Len(t, client.requests, 2)
	assert.Empty(t, client.requests[1].Tools)
}

func TestTabularConciseSkipsNarrative(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "compute_stat", ArgsJSON: `{"column":"Amount","stat":"max"}`}),
	}}
	tab := newTabular(t, client, edaMemory(t))

	res, err := tab.Ask(context.Background(), "máximo de Amount", true)
	require.NoError(t, err)

	assert.Contains(t, res.Text, "max(Amount) = 30.5")
	assert.Len(t, client.requests, 1)
}

func TestTabularSentinelAutoSaves(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "class_balance", ArgsJSON: `{"target":"Class"}`}),
		textResponse("Dataset desbalanceado.\n\nConclusão salva: \"classe 1 é minoritária (25%)\""),
	}}
	mem := edaMemory(t)
	tab := newTabular(t, client, mem)

	res, err := tab.Ask(context.Background(), "balanceamento?", false)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Classe minoritária")

	saved, err := mem.All()
	require.NoError(t, err)
	assert.Equal(t, []string{"classe 1 é minoritária (25%)"}, saved)
}

func TestTabularStoreAndGetConclusions(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(
			llm.ToolUse{ID: "t1", Name: "store_conclusions", ArgsJSON: `{"text":"alta cardinalidade em cidade"}`},
			llm.ToolUse{ID: "t2", Name: "get_conclusions", ArgsJSON: "{}"},
		),
	}}
	tab := newTabular(t, client, edaMemory(t))

	res, err := tab.Ask(context.Background(), "lembra disso", true)
	require.NoError(t, err)

	assert.Contains(t, res.Text, "Conclusão armazenada.")
	assert.Contains(t, res.Text, "- alta cardinalidade em cidade")
}

func TestDescribeData(t *testing.T) {
	out := describeData(edaTable(t))
	assert.Contains(t, out.Text, "Shape: 4 linhas x 3 colunas")
	assert.Contains(t, out.Text, "cidade: categorical")
	assert.Contains(t, out.Text, "Amount: numeric")
	require.Len(t, out.Tables, 1)
}

func TestSchemaInfo(t *testing.T) {
	out := schemaInfo(edaTable(t), false)
	require.Len(t, out.Tables, 1)
	assert.Contains(t, out.Tables[0], "numeric")
	assert.Contains(t, out.Tables[0], "categorical")
	assert.Empty(t, out.Text)

	withExamples := schemaInfo(edaTable(t), true)
	assert.Contains(t, withExamples.Text, "cidade")
	assert.Contains(t, withExamples.Text, "SP")
}

func TestValueCountsHandler(t *testing.T) {
	out := valueCounts(edaTable(t), "cidade", 2)
	assert.Equal(t, "Top 2 valores em 'cidade'.", out.Text)
	require.Len(t, out.Tables, 1)
	assert.Contains(t, out.Tables[0], "SP")

	missing := valueCounts(edaTable(t), "bairro", 10)
	assert.Equal(t, "Coluna 'bairro' não encontrada.", missing.Text)
}

func TestComputeStatHandler(t *testing.T) {
	out := computeStat(edaTable(t), "Amount", "sum")
	assert.Equal(t, "sum(Amount) = 76", out.Text)

	missing := computeStat(edaTable(t), "nada", "mean")
	assert.Equal(t, "Coluna 'nada' não encontrada.", missing.Text)
}

func TestClassBalanceHandler(t *testing.T) {
	out := classBalance(edaTable(t), "Class", 20)
	assert.Contains(t, out.Text, "2 classes")
	assert.Contains(t, out.Text, "0.2500")
	require.Len(t, out.Tables, 1)

	missing := classBalance(edaTable(t), "alvo", 20)
	assert.Equal(t, "Coluna alvo 'alvo' não encontrada.", missing.Text)
}

func TestHistogramHandler(t *testing.T) {
	out := histogram(edaTable(t), fakeRenderer{}, "Amount", 10, false)
	assert.Equal(t, []string{"img-hist"}, out.Images)
	assert.Contains(t, out.Text, "Histograma de 'Amount'")

	missing := histogram(edaTable(t), fakeRenderer{}, "nada", 10, false)
	assert.Contains(t, missing.Text, "Erro ao plotar histograma")
	assert.Empty(t, missing.Images)
}

func TestCorrMatrixHandler(t *testing.T) {
	out := corrMatrix(edaTable(t), fakeRenderer{}, "pearson")
	assert.Equal(t, []string{"img-corr"}, out.Images)
	assert.Equal(t, "Matriz de correlação (pearson).", out.Text)

	bad := corrMatrix(edaTable(t), fakeRenderer{}, "kendall")
	assert.Contains(t, bad.Text, "Erro ao calcular correlação")
}

func TestGroupbyAggregateHandler(t *testing.T) {
	tbl := edaTable(t)

	grouped := groupbyAggregate(tbl, "", ArgsFrom(map[string]any{
		"by":      []any{"cidade"},
		"columns": []any{"Amount"},
		"stats":   []any{"mean"},
	}))
	require.Len(t, grouped.Tables, 1)
	assert.Contains(t, grouped.Tables[0], "cidade")

	whole := groupbyAggregate(tbl, "média de Amount", ArgsFrom(map[string]any{}))
	require.Len(t, whole.Tables, 1)
	assert.Contains(t, whole.Tables[0], "Amount")
}

func TestGroupbyAggregateExplicitZeroLimitKeepsAllGroups(t *testing.T) {
	tbl := edaTable(t)

	out := groupbyAggregate(tbl, "", ArgsFrom(map[string]any{
		"by":      []any{"cidade"},
		"columns": []any{"Amount"},
		"stats":   []any{"mean"},
		"limit":   float64(0),
	}))
	require.Len(t, out.Tables, 1)
	// Header + separator + one data row per city.
	assert.Len(t, strings.Split(out.Tables[0], "\n"), 5)
}

func TestGroupbyAggregateNoNumericColumns(t *testing.T) {
	tbl, err := table.FromCSV(strings.NewReader("cidade\nSP\nRJ"))
	require.NoError(t, err)

	out := groupbyAggregate(tbl, "", ArgsFrom(map[string]any{}))
	assert.Equal(t, "Não há colunas numéricas para agregação.", out.Text)
	assert.Empty(t, out.Tables)
}
