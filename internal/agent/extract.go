package agent

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-cli/internal/fiscal"
	"github.com/sells-group/agent-cli/internal/llm"
)

// ocrClampChars bounds how much OCR text goes into the extraction prompt.
const ocrClampChars = 6000

const extractionSystem = "Você responde SOMENTE um JSON válido, sem nenhum texto fora do JSON."

const extractionPrompt = `Você é um especialista em documentos fiscais brasileiros.

A partir do TEXTO abaixo (que veio de OCR de DANFE/DACTE/NFS-e),
extraia os campos principais em formato JSON, seguindo exatamente esta estrutura de chaves:

{
  "tipo_documento": "DANFE | DACTE | NFS-e | desconhecido",
  "chave_acesso": "<string ou null>",
  "cnpj_emitente": "<string ou null>",
  "razao_social_emitente": "<string ou null>",
  "cnpj_destinatario": "<string ou null>",
  "razao_social_destinatario": "<string ou null>",
  "data_emissao": "<string no formato DD/MM/AAAA ou null>",
  "valor_total": "<número em formato string, ex: 1234.56, ou null>"
}

Regras:
- Se não encontrar algum campo, use null.
- Não escreva nenhuma explicação fora do JSON.
- Não inclua comentários.
- Se tiver dúvida entre dois valores, escolha o mais plausível com base no contexto.
- Não invente campos que não existam no texto.

TEXTO OCR:
----------------
`

// Extractor turns raw OCR text into structured fiscal fields via one model
// call. It is its own small client so the extraction temperature stays
// independent from the agent loop's.
type Extractor struct {
	client    llm.Client
	model     string
	maxTokens int64
}

func NewExtractor(client llm.Client, model string, maxTokens int64) *Extractor {
	return &Extractor{client: client, model: model, maxTokens: maxTokens}
}

// Extract prompts the model for the fiscal field JSON. When the response is
// not valid JSON the raw content is preserved in Fields.RawResponse instead
// of failing the pipeline.
func (e *Extractor) Extract(ctx context.Context, ocrText string) (*fiscal.Fields, error) {
	clamped := clampRunes(ocrText, ocrClampChars)

	temp := 0.1
	resp, err := e.client.CreateMessage(ctx, llm.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    extractionSystem,
		Messages: []llm.Message{
			llm.TextMessage("user", extractionPrompt+clamped+"\n----------------"),
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "agent: extraction call")
	}
	resp.Usage.LogCost(e.model, "extraction")

	content := resp.TextContent()
	var fields fiscal.Fields
	if err := json.Unmarshal([]byte(stripFences(content)), &fields); err != nil {
		return &fiscal.Fields{RawResponse: content}, nil
	}
	return &fields, nil
}

// clampRunes truncates s to at most max bytes without splitting a multi-byte
// rune at the cut.
func clampRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite the JSON-only instruction.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
