package cli

import (
	"context"
	"fmt"

	"github.com/okidwi/chathub/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := api.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}

		fmt.Printf("Uptime: %.0fs\n", snap.UptimeSeconds)
		printOp("chat submit", snap.ChatSubmit)
		printOp("chat regenerate", snap.ChatRegenerate)
		printOp("collab messages", snap.CollabMessage)
		printOp("archive writes", snap.ArchiveWrite)
		return nil
	},
}

func printOp(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("%-16s count=%d avg=%.0fms min=%dms max=%dms\n",
		name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.AvgReplyChars != nil {
		fmt.Printf("%-16s avg_reply=%.0f chars\n", "", *op.AvgReplyChars)
	}
}
