package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/agent"
	"github.com/sells-group/agent-cli/internal/plot"
	"github.com/sells-group/agent-cli/internal/table"
)

var (
	askCSV      string
	askConcise  bool
	askJSON     bool
	askMemory   string
	askImageDir string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the EDA agent a question about a CSV dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ask"); err != nil {
			return err
		}

		f, err := os.Open(askCSV)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close()

		tbl, err := table.FromCSV(f)
		if err != nil {
			return err
		}
		zap.L().Info("csv loaded",
			zap.String("path", askCSV),
			zap.Int("rows", tbl.Rows()),
			zap.Int("cols", tbl.Cols()),
		)

		mem, err := initMemory(askMemory)
		if err != nil {
			return err
		}

		tab := agent.NewTabular(initClient(), tbl, mem, plot.NewRenderer(), agent.TabularConfig{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Agent.Temperature,
		})

		res, err := tab.Ask(cmd.Context(), args[0], askConcise)
		if err != nil {
			return err
		}

		if askJSON {
			return json.NewEncoder(os.Stdout).Encode(res)
		}

		fmt.Println(res.Text)
		for _, t := range res.Tables {
			fmt.Println()
			fmt.Println(t)
		}
		return writeImages(res.Images)
	},
}

// writeImages decodes rendered figures into PNG files under the chosen
// directory; without one the figures are only counted.
func writeImages(images []string) error {
	if len(images) == 0 {
		return nil
	}
	if askImageDir == "" {
		fmt.Printf("\n(%d figura(s) gerada(s); use --image-dir para salvá-las)\n", len(images))
		return nil
	}

	if err := os.MkdirAll(askImageDir, 0o755); err != nil {
		return eris.Wrap(err, "create image dir")
	}
	for i, img := range images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return eris.Wrap(err, "decode image")
		}
		path := filepath.Join(askImageDir, fmt.Sprintf("figure_%d.png", i+1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write image")
		}
		fmt.Printf("figura salva: %s\n", path)
	}
	return nil
}

func init() {
	askCmd.Flags().StringVar(&askCSV, "csv", "", "path to the CSV dataset (required)")
	askCmd.Flags().BoolVar(&askConcise, "concise", false, "skip the narrative round, factual output only")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")
	askCmd.Flags().StringVar(&askMemory, "memory", "", "conclusion store path (default from config)")
	askCmd.Flags().StringVar(&askImageDir, "image-dir", "", "directory to write generated figures")
	askCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(askCmd)
}
