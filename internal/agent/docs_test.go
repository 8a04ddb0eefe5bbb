package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/fiscal"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/store"
)

type fakeOCR struct {
	text     string
	err      error
	lastLang string
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte, _ string, lang string) (string, error) {
	f.lastLang = lang
	return f.text, f.err
}

type fakeStore struct {
	invoices []store.Invoice
	err      error
}

func (s *fakeStore) SaveInvoice(_ context.Context, fields fiscal.Fields, report fiscal.Report) (*store.Saved, error) {
	if s.err != nil {
		return nil, s.err
	}
	created := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s.invoices = append(s.invoices, store.Invoice{ID: "inv-1", CreatedAt: created, Fields: fields, Report: report})
	return &store.Saved{Status: "ok", ID: "inv-1", CreatedAt: created}, nil
}

func (s *fakeStore) ListInvoices(context.Context, int) ([]store.Invoice, error) {
	return s.invoices, nil
}

func (s *fakeStore) Close() error { return nil }

const extractionJSON = `{
	"tipo_documento": "DANFE",
	"chave_acesso": "12345678901234567890123456789012345678901234",
	"cnpj_emitente": "12.345.678/0001-95",
	"razao_social_emitente": "ACME LTDA",
	"cnpj_destinatario": null,
	"razao_social_destinatario": null,
	"data_emissao": "01/08/2026",
	"valor_total": "1.234,56"
}`

func TestDocsFullPipeline(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "run_ocr", ArgsJSON: `{"lang":"por"}`}),
		toolUseResponse(llm.ToolUse{ID: "t2", Name: "extract_invoice_fields", ArgsJSON: "{}"}),
		textResponse(extractionJSON),
		toolUseResponse(llm.ToolUse{ID: "t3", Name: "validate_invoice_fields", ArgsJSON: "{}"}),
		toolUseResponse(llm.ToolUse{ID: "t4", Name: "save_invoice_to_db", ArgsJSON: "{}"}),
		textResponse("Documento processado: DANFE da ACME LTDA, score 0.7."),
	}}
	ocrFake := &fakeOCR{text: "DANFE ACME LTDA CNPJ 12.345.678/0001-95"}
	st := &fakeStore{}

	docs := NewDocs(client, ocrFake, st, DocsConfig{Model: "m", MaxTokens: 1000})
	res, err := docs.Ask(context.Background(), []byte("%PDF"), "pdf", "Extraia e salve esta nota.")
	require.NoError(t, err)

	assert.Equal(t, "Documento processado: DANFE da ACME LTDA, score 0.7.", res.AssistantMessage)
	assert.Equal(t, ocrFake.text, res.OCRText)
	assert.Equal(t, "por", ocrFake.lastLang)

	require.NotNil(t, res.Fields)
	assert.Equal(t, fiscal.DocDANFE, res.Fields.DocumentType)
	assert.Equal(t, "ACME LTDA", res.Fields.IssuerName)

	require.NotNil(t, res.ValidationReport)
	assert.True(t, res.ValidationReport.IssuerTaxIDValid)
	assert.False(t, res.ValidationReport.RecipientTaxIDValid)
	assert.InDelta(t, 0.7, res.ValidationReport.ConfidenceScore, 1e-9)

	require.NotNil(t, res.SaveResult)
	assert.Equal(t, "ok", res.SaveResult.Status)
	assert.Equal(t, "inv-1", res.SaveResult.ID)
	require.Len(t, st.invoices, 1)
	assert.Equal(t, "12.345.678/0001-95", st.invoices[0].Fields.IssuerTaxID)
}

func TestDocsPriorStageFeedsLaterTool(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "run_ocr", ArgsJSON: "{}"}),
		toolUseResponse(llm.ToolUse{ID: "t2", Name: "extract_invoice_fields", ArgsJSON: "{}"}),
		textResponse(`{"tipo_documento":"desconhecido"}`),
		textResponse("fim"),
	}}
	ocrFake := &fakeOCR{text: "ABC"}

	docs := NewDocs(client, ocrFake, &fakeStore{}, DocsConfig{Model: "m", MaxTokens: 1000})
	_, err := docs.Ask(context.Background(), []byte("x"), "png", "processa")
	require.NoError(t, err)

	// The extraction prompt must carry the OCR text from the earlier stage
	// even though the tool call omitted the argument.
	require.Len(t, client.requests, 4)
	extraction := client.requests[2]
	assert.Equal(t, extractionSystem, extraction.System)
	assert.Contains(t, extraction.Messages[0].Blocks[0].Text, "ABC")
}

func TestDocsRoundCapFallback(t *testing.T) {
	var responses []*llm.MessageResponse
	for i := 0; i < 6; i++ {
		responses = append(responses, toolUseResponse(llm.ToolUse{ID: "t", Name: "run_ocr", ArgsJSON: "{}"}))
	}
	client := &scriptedClient{responses: responses}
	ocrFake := &fakeOCR{text: "texto do documento"}

	docs := NewDocs(client, ocrFake, &fakeStore{}, DocsConfig{Model: "m", MaxTokens: 1000})
	res, err := docs.Ask(context.Background(), []byte("x"), "jpg", "processa")
	require.NoError(t, err)

	assert.Equal(t, docsFallback, res.AssistantMessage)
	// State accumulated before the cap is still reported.
	assert.Equal(t, "texto do documento", res.OCRText)
	assert.Nil(t, res.Fields)
	assert.Len(t, client.requests, 6)
}

func TestDocsExplicitArgsBeatScratchpad(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{
			ID:   "t1",
			Name: "validate_invoice_fields",
			ArgsJSON: `{"fields": {"tipo_documento": "NFS-e", "cnpj_emitente": "11222333000181",
				"chave_acesso": "", "data_emissao": "2026-08-01", "valor_total": "10,00",
				"cnpj_destinatario": "11222333000181"}}`,
		}),
		textResponse("validado"),
	}}

	docs := NewDocs(client, &fakeOCR{}, &fakeStore{}, DocsConfig{Model: "m", MaxTokens: 1000})
	res, err := docs.Ask(context.Background(), []byte("x"), "pdf", "valida")
	require.NoError(t, err)

	require.NotNil(t, res.Fields)
	assert.Equal(t, fiscal.DocNFSe, res.Fields.DocumentType)
	require.NotNil(t, res.ValidationReport)
	assert.Equal(t, []string{"chave_acesso"}, res.ValidationReport.SuspiciousFields)
	assert.InDelta(t, 0.7, res.ValidationReport.ConfidenceScore, 1e-9)
}

func TestDocsOCRFailureBecomesErrorResult(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "run_ocr", ArgsJSON: "{}"}),
		textResponse("não consegui ler o arquivo"),
	}}
	ocrFake := &fakeOCR{err: assert.AnError}

	docs := NewDocs(client, ocrFake, &fakeStore{}, DocsConfig{Model: "m", MaxTokens: 1000})
	res, err := docs.Ask(context.Background(), []byte("x"), "bmp", "processa")
	require.NoError(t, err)

	assert.Empty(t, res.OCRText)
	require.Len(t, client.requests, 2)
	result := client.requests[1].Messages[2].Blocks[0].ToolResult
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "Falha no OCR")
}

func TestDocsSaveWithoutStore(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ToolUse{ID: "t1", Name: "save_invoice_to_db", ArgsJSON: "{}"}),
		textResponse("sem banco"),
	}}

	docs := NewDocs(client, &fakeOCR{}, nil, DocsConfig{Model: "m", MaxTokens: 1000})
	res, err := docs.Ask(context.Background(), []byte("x"), "pdf", "salva")
	require.NoError(t, err)

	assert.Nil(t, res.SaveResult)
	result := client.requests[1].Messages[2].Blocks[0].ToolResult
	assert.True(t, result.IsError)
}
