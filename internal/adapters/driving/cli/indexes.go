package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Queue index changes",
}

var indexesDeleteCmd = &cobra.Command{
	Use:   "delete [index]",
	Short: "Queue deletion of an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexesDelete,
}

func init() {
	indexesCmd.AddCommand(indexesDeleteCmd)
	rootCmd.AddCommand(indexesCmd)
}

func runIndexesDelete(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	task, err := updateService.Register(cmd.Context(), args[0], driving.DeleteIndex())
	if err != nil {
		return fmt.Errorf("failed to queue index deletion: %w", err)
	}
	printTask(cmd, task)
	return nil
}
