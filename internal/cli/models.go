package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		models, err := api.Models(context.Background())
		if err != nil {
			return fmt.Errorf("models: %w", err)
		}

		if len(models) == 0 {
			fmt.Println("No models installed.")
			return nil
		}
		for _, model := range models {
			fmt.Printf("%-30s  %6.1f GB\n", model.Name, float64(model.Size)/1e9)
		}
		return nil
	},
}
