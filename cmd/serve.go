package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/plot"
	"github.com/sells-group/agent-cli/internal/table"
)

// maxUploadBytes bounds multipart uploads (CSV datasets and documents).
const maxUploadBytes = 32 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API exposing both agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mem, err := initMemory("")
		if err != nil {
			return err
		}
		st, err := initStore("")
		if err != nil {
			return err
		}
		defer st.Close()

		docs, err := initDocsAgent(st)
		if err != nil {
			return err
		}
		client := initClient()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/v1/ask", func(w http.ResponseWriter, req *http.Request) {
			data, _, err := readUpload(req, "file")
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			prompt := req.FormValue("prompt")
			if prompt == "" {
				writeError(w, http.StatusBadRequest, eris.New("prompt is required"))
				return
			}

			tbl, err := table.FromCSV(bytes.NewReader(data))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}

			tab := agent.NewTabular(client, tbl, mem, plot.NewRenderer(), agent.TabularConfig{
				Model:       cfg.Anthropic.Model,
				MaxTokens:   cfg.Anthropic.MaxTokens,
				Temperature: cfg.Agent.Temperature,
			})
			res, err := tab.Ask(req.Context(), prompt, req.FormValue("concise") == "true")
			if err != nil {
				zap.L().Error("ask failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Post("/v1/docs", func(w http.ResponseWriter, req *http.Request) {
			data, filename, err := readUpload(req, "file")
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			message := req.FormValue("message")
			if message == "" {
				message = "Extraia, valide e salve os campos desta nota."
			}
			fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

			res, err := docs.Ask(req.Context(), data, fileType, message)
			if err != nil {
				zap.L().Error("docs failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/v1/conclusions", func(w http.ResponseWriter, _ *http.Request) {
			items, err := mem.All()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"conclusions": items})
		})

		r.Get("/v1/invoices", func(w http.ResponseWriter, req *http.Request) {
			invoices, err := st.ListInvoices(req.Context(), 0)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func readUpload(req *http.Request, field string) ([]byte, string, error) {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", eris.Wrap(err, "parse multipart form")
	}
	f, header, err := req.FormFile(field)
	if err != nil {
		return nil, "", eris.Wrapf(err, "form file %q", field)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, "", eris.Wrap(err, "read upload")
	}
	return data, header.Filename, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
