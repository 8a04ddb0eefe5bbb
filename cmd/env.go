package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/memory"
	"github.com/sells-group/agent-cli/internal/ocr"
	"github.com/sells-group/agent-cli/internal/resilience"
	"github.com/sells-group/agent-cli/internal/store"
)

// initClient builds the model backend with retry, rate limiting and a
// circuit breaker around the raw SDK client.
func initClient() llm.Client {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("model backend circuit state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	return llm.NewResilient(llm.NewClient(cfg.Anthropic.Key), llm.ResilientOptions{
		MaxAttempts:       cfg.Agent.RetryAttempts,
		RequestsPerMinute: cfg.Agent.RequestsPerMinute,
		Breaker:           breaker,
	})
}

// initMemory opens the conclusion store, optionally at an overridden path.
func initMemory(override string) (*memory.Store, error) {
	path := cfg.Memory.Path
	if override != "" {
		path = override
	}
	mem, err := memory.NewStore(path)
	if err != nil {
		return nil, eris.Wrap(err, "open memory store")
	}
	return mem, nil
}

// initStore opens the invoice database, optionally at an overridden path.
func initStore(override string) (store.Store, error) {
	path := cfg.Store.Path
	if override != "" {
		path = override
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, eris.Wrap(err, "open invoice store")
	}
	return st, nil
}

// initDocsAgent wires the full document pipeline.
func initDocsAgent(st store.Store) (*agent.Docs, error) {
	extractor, err := ocr.NewExtractor(ocr.Config{
		Provider:      cfg.OCR.Provider,
		PdfToTextPath: cfg.OCR.PdfToTextPath,
		TesseractPath: cfg.OCR.TesseractPath,
		MistralKey:    cfg.OCR.MistralKey,
		MistralModel:  cfg.OCR.MistralModel,
	})
	if err != nil {
		return nil, eris.Wrap(err, "init ocr")
	}

	return agent.NewDocs(initClient(), extractor, st, agent.DocsConfig{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: 0.1,
		MaxRounds:   cfg.Agent.DocsMaxRounds,
		OCRLang:     cfg.OCR.Language,
	}), nil
}
