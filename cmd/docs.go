package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	docsMessage string
	docsJSON    bool
	docsDB      string
)

var docsCmd = &cobra.Command{
	Use:   "docs <file>",
	Short: "Process a fiscal document (DANFE/DACTE/NFS-e) with the document agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("docs"); err != nil {
			return err
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "read document")
		}
		fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")

		st, err := initStore(docsDB)
		if err != nil {
			return err
		}
		defer st.Close()

		docs, err := initDocsAgent(st)
		if err != nil {
			return err
		}

		zap.L().Info("processing document",
			zap.String("path", path),
			zap.String("type", fileType),
			zap.Int("bytes", len(data)),
		)

		res, err := docs.Ask(cmd.Context(), data, fileType, docsMessage)
		if err != nil {
			return err
		}

		if docsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Println(res.AssistantMessage)
		if res.ValidationReport != nil {
			fmt.Printf("\nScore de confiança: %.1f\n", res.ValidationReport.ConfidenceScore)
			if len(res.ValidationReport.SuspiciousFields) > 0 {
				fmt.Printf("Campos suspeitos: %s\n", strings.Join(res.ValidationReport.SuspiciousFields, ", "))
			}
		}
		if res.SaveResult != nil {
			fmt.Printf("Registro salvo: %s (%s)\n", res.SaveResult.ID, res.SaveResult.CreatedAt)
		}
		return nil
	},
}

func init() {
	docsCmd.Flags().StringVarP(&docsMessage, "message", "m", "Extraia, valide e salve os campos desta nota.", "instruction for the agent")
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "print the full result as JSON")
	docsCmd.Flags().StringVar(&docsDB, "db", "", "invoice database path (default from config)")
	rootCmd.AddCommand(docsCmd)
}
