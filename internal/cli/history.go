package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show and manage the conversation history log",
	RunE:  runHistoryList,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the history log as CSV or JSON",
	Long: `Download the history log in CSV or JSON format.

Examples:
  chathub history export
  chathub history export --format json
  chathub history export --out turns.csv`,
	RunE: runHistoryExport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the history log (conversation is kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.ClearHistory(context.Background()); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	},
}

func init() {
	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format (csv or json)")
	historyExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: server-suggested name)")

	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	history, err := api.History(context.Background())
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	if len(history) == 0 {
		fmt.Println("No history yet.")
		return nil
	}
	for _, entry := range history {
		fmt.Printf("%s  [%s]\n", entry.Timestamp, entry.Model)
		fmt.Printf("  user: %s\n", entry.User)
		fmt.Printf("  assistant: %s\n", entry.Assistant)
		if verbose && entry.ResponseTime != nil {
			fmt.Printf("  response_time: %.2fs\n", *entry.ResponseTime)
		}
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	data, filename, err := api.ExportHistory(context.Background(), exportFormat)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out := exportOut
	if out == "" {
		out = filename
	}
	if out == "" {
		out = "chat_history." + exportFormat
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Exported %d bytes to %s\n", len(data), out)
	return nil
}
