package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/agent-cli/internal/table"
)

var (
	invoicesLimit int
	invoicesJSON  bool
	invoicesDB    string
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List invoices persisted by the document agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(invoicesDB)
		if err != nil {
			return err
		}
		defer st.Close()

		invoices, err := st.ListInvoices(cmd.Context(), invoicesLimit)
		if err != nil {
			return err
		}

		if invoicesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(invoices)
		}

		if len(invoices) == 0 {
			fmt.Println("Nenhuma nota salva.")
			return nil
		}

		records := [][]string{{"id", "created_at", "tipo", "cnpj_emitente", "valor_total", "score"}}
		for _, inv := range invoices {
			records = append(records, []string{
				inv.ID,
				inv.CreatedAt.Format(time.RFC3339),
				string(inv.Fields.DocumentType),
				inv.Fields.IssuerTaxID,
				inv.Fields.TotalValue,
				fmt.Sprintf("%.1f", inv.Report.ConfidenceScore),
			})
		}
		fmt.Println(table.Render(records))
		return nil
	},
}

func init() {
	invoicesCmd.Flags().IntVar(&invoicesLimit, "limit", 20, "maximum invoices to list")
	invoicesCmd.Flags().BoolVar(&invoicesJSON, "json", false, "print as JSON")
	invoicesCmd.Flags().StringVar(&invoicesDB, "db", "", "invoice database path (default from config)")
	rootCmd.AddCommand(invoicesCmd)
}
