package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conclusionsMemory string

var conclusionsCmd = &cobra.Command{
	Use:   "conclusions",
	Short: "List conclusions saved by the EDA agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := initMemory(conclusionsMemory)
		if err != nil {
			return err
		}
		md, err := mem.Markdown()
		if err != nil {
			return err
		}
		fmt.Println(md)
		return nil
	},
}

var conclusionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved conclusions",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, err := initMemory(conclusionsMemory)
		if err != nil {
			return err
		}
		if err := mem.Clear(); err != nil {
			return err
		}
		fmt.Println("Conclusões removidas.")
		return nil
	},
}

func init() {
	conclusionsCmd.PersistentFlags().StringVar(&conclusionsMemory, "memory", "", "conclusion store path (default from config)")
	conclusionsCmd.AddCommand(conclusionsClearCmd)
	rootCmd.AddCommand(conclusionsCmd)
}
