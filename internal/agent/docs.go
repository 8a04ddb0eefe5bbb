package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sells-group/agent-cli/internal/fiscal"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/model"
	"github.com/sells-group/agent-cli/internal/ocr"
	"github.com/sells-group/agent-cli/internal/store"
)

const docsSystem = `Você é um agente especialista em documentos fiscais brasileiros (DANFE, DACTE, NFS-e).

Seu contexto:
- O usuário envia um ARQUIVO de documento fiscal (PDF de imagem ou foto).
- Você NÃO vê o arquivo diretamente: para ler o conteúdo, precisa chamar a tool ` + "`run_ocr`" + `.
- A partir do texto OCR, você pode usar ` + "`extract_invoice_fields`" + ` para extrair os campos principais.
- Depois, você pode usar ` + "`validate_invoice_fields`" + ` para checar formato, consistência básica e gerar um score de confiança.
- Se fizer sentido, pode usar ` + "`save_invoice_to_db`" + ` para persistir os dados em um banco SQLite.

Objetivos principais:
1) Garantir que os campos sejam extraídos com o máximo de precisão possível.
2) Deixar claro para o usuário quais campos foram encontrados, quais estão suspeitos e qual o nível de confiança da extração.
3) Evitar alucinações: não inventar CNPJ, chave de acesso ou valores que não estejam respaldados pelo texto ou pelas tools.
4) Sempre que houver dúvida relevante, sinalizar a necessidade de revisão humana (HITL).

Estratégia recomendada:
- Primeiro, se você ainda não tiver o texto da nota, chame ` + "`run_ocr`" + `.
- Em seguida, use ` + "`extract_invoice_fields`" + ` com o texto OCR.
- Depois, use ` + "`validate_invoice_fields`" + ` com o JSON de campos.
- Se o usuário pedir para salvar ou se o score for razoável e o contexto permitir, use ` + "`save_invoice_to_db`" + `.
- Ao final, responda em linguagem natural, em português, explicando:
  * o que você fez (quais tools usou, de forma resumida),
  * os principais campos extraídos (CNPJ, chave, data, valor),
  * os campos suspeitos ou inválidos,
  * o score de confiança e se recomenda revisão humana.

Estilo de resposta:
- Seja direto, objetivo e transparente.
- Não exponha detalhes internos de implementação desnecessários (como caminhos de arquivo ou SQL cru).
- Quando fizer sentido, utilize listas e subtítulos para organizar a resposta.`

// docsFallback is returned when the document loop exhausts its rounds
// without the model producing a final answer.
const docsFallback = "Não consegui chegar a uma resposta final após usar as ferramentas."

// DocsConfig carries the model parameters for the document agent.
type DocsConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	// MaxRounds caps the tool rounds; non-positive falls back to 6.
	MaxRounds int
	// OCRLang is the default OCR language when the model omits one.
	OCRLang string
}

// Docs is the fiscal-document extraction agent: OCR, field extraction,
// validation and persistence, orchestrated by the model through tools.
type Docs struct {
	client    llm.Client
	ocr       ocr.Extractor
	extractor *Extractor
	store     store.Store
	cfg       DocsConfig
}

// NewDocs wires the document pipeline. The store may be nil when
// persistence is disabled; saving then reports an error to the model.
func NewDocs(client llm.Client, ocrExt ocr.Extractor, st store.Store, cfg DocsConfig) *Docs {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 6
	}
	if cfg.OCRLang == "" {
		cfg.OCRLang = "por"
	}
	return &Docs{
		client:    client,
		ocr:       ocrExt,
		extractor: NewExtractor(client, cfg.Model, cfg.MaxTokens),
		store:     st,
		cfg:       cfg,
	}
}

// Ask processes one uploaded fiscal document. Whatever the pipeline stages
// accumulated is returned even when the loop hits its round cap.
func (d *Docs) Ask(ctx context.Context, fileData []byte, fileType, userMessage string) (*model.DocsResult, error) {
	scratch := &Scratchpad{Prompt: userMessage}

	user := fmt.Sprintf(
		"Um arquivo de documento fiscal foi enviado (PDF ou imagem). "+
			"Use as tools disponíveis para fazer OCR, extrair e validar os campos, "+
			"e salvar se fizer sentido.\n\nPedido do usuário: %s", userMessage)

	loop := NewLoop(d.client, d.registry(fileData, fileType), LoopConfig{
		Model:       d.cfg.Model,
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
		MaxRounds:   d.cfg.MaxRounds,
	})
	res, err := loop.Run(ctx, docsSystem, user, scratch, false)
	if err != nil {
		return nil, err
	}

	out := &model.DocsResult{
		AssistantMessage: res.Text,
		OCRText:          scratch.OCRText,
		Fields:           scratch.Fields,
		ValidationReport: scratch.Report,
		SaveResult:       scratch.SaveResult,
	}
	if !res.Done {
		out.AssistantMessage = docsFallback
	}
	return out, nil
}

// registry builds the per-invocation tool set closed over the uploaded
// file. Later calls may omit arguments earlier stages already produced;
// each handler then reads the scratchpad instead.
func (d *Docs) registry(fileData []byte, fileType string) *Registry {
	reg := NewRegistry()

	reg.Register(Handler{
		Name: "run_ocr",
		Description: "Executa OCR no arquivo de documento fiscal enviado (PDF ou imagem) " +
			"e retorna o texto bruto extraído.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"lang": map[string]any{
					"type":        "string",
					"description": "Idioma para OCR (padrão: 'por').",
					"default":     d.cfg.OCRLang,
				},
			},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			text, err := d.ocr.ExtractText(ctx, fileData, fileType, args.String("lang", d.cfg.OCRLang))
			if err != nil {
				return Outcome{Text: fmt.Sprintf("Falha no OCR: %s", err), IsError: true}
			}
			scratch.OCRText = text
			return jsonOutcome(map[string]string{"text_ocr": text})
		},
	})

	reg.Register(Handler{
		Name: "extract_invoice_fields",
		Description: "Extrai campos estruturados (tipo_documento, chave_acesso, CNPJs, data_emissao, " +
			"valor_total etc.) a partir do texto OCR de um documento fiscal brasileiro.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"text_ocr": map[string]any{
					"type":        "string",
					"description": "Texto bruto de OCR da DANFE/DACTE/NFS-e.",
				},
			},
			Required: []string{"text_ocr"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			text := args.String("text_ocr", "")
			if text == "" {
				text = scratch.OCRText
			}
			fields, err := d.extractor.Extract(ctx, text)
			if err != nil {
				return Outcome{Text: fmt.Sprintf("Falha na extração: %s", err), IsError: true}
			}
			scratch.Fields = fields
			return jsonOutcome(fields)
		},
	})

	reg.Register(Handler{
		Name: "validate_invoice_fields",
		Description: "Valida e normaliza os campos extraídos de um documento fiscal, " +
			"retornando um relatório de validação com score de confiança e campos suspeitos.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"fields": map[string]any{
					"type": "object",
					"description": "Objeto JSON com os campos da nota fiscal, " +
						"como retornado por extract_invoice_fields.",
				},
			},
			Required: []string{"fields"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			fields := fieldsFromArgs(args.Map("fields"), scratch.Fields)
			normalized, report := fiscal.ValidateAndScore(fields)
			scratch.Fields = &normalized
			scratch.Report = &report
			return jsonOutcome(map[string]any{
				"fields_normalized": normalized,
				"validation_report": report,
			})
		},
	})

	reg.Register(Handler{
		Name: "save_invoice_to_db",
		Description: "Persiste os campos de nota fiscal e o relatório de validação em um banco SQLite, " +
			"retornando o ID do registro criado.",
		Schema: llm.Schema{
			Properties: map[string]any{
				"fields": map[string]any{
					"type":        "object",
					"description": "Campos da nota fiscal a serem salvos.",
				},
				"validation_report": map[string]any{
					"type":        "object",
					"description": "Relatório de validação associado.",
				},
			},
			Required: []string{"fields", "validation_report"},
		},
		Fn: func(ctx context.Context, scratch *Scratchpad, args Args) Outcome {
			if d.store == nil {
				return Outcome{Text: "Persistência não está configurada.", IsError: true}
			}
			fields := fieldsFromArgs(args.Map("fields"), scratch.Fields)
			report := reportFromArgs(args.Map("validation_report"), scratch.Report)

			saved, err := d.store.SaveInvoice(ctx, fields, report)
			if err != nil {
				return Outcome{Text: fmt.Sprintf("Falha ao salvar no banco: %s", err), IsError: true}
			}
			scratch.SaveResult = &model.SaveResult{
				Status:    saved.Status,
				ID:        saved.ID,
				CreatedAt: saved.CreatedAt.UTC().Format(time.RFC3339),
			}
			return jsonOutcome(scratch.SaveResult)
		},
	})

	return reg
}

// fieldsFromArgs decodes the model-provided fields object, falling back to
// the scratchpad value when the argument is absent or malformed.
func fieldsFromArgs(raw map[string]any, prior *fiscal.Fields) fiscal.Fields {
	if len(raw) > 0 {
		var f fiscal.Fields
		if data, err := json.Marshal(raw); err == nil {
			if err := json.Unmarshal(data, &f); err == nil {
				return f
			}
		}
	}
	if prior != nil {
		return *prior
	}
	return fiscal.Fields{}
}

func reportFromArgs(raw map[string]any, prior *fiscal.Report) fiscal.Report {
	if len(raw) > 0 {
		var r fiscal.Report
		if data, err := json.Marshal(raw); err == nil {
			if err := json.Unmarshal(data, &r); err == nil {
				return r
			}
		}
	}
	if prior != nil {
		return *prior
	}
	return fiscal.Report{}
}

// jsonOutcome serializes a tool's structured result for the transcript.
func jsonOutcome(v any) Outcome {
	data, err := json.Marshal(v)
	if err != nil {
		return Outcome{Text: fmt.Sprintf("Falha ao serializar resultado: %s", err), IsError: true}
	}
	return Outcome{Payload: string(data)}
}
