package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage staged document content",
}

var contentSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove content no queued task needs",
	Long: `Deletes staged blobs whose task has finished, and blobs no task
references. Blobs of enqueued or processing tasks are kept.`,
	Args: cobra.NoArgs,
	RunE: runContentSweep,
}

func init() {
	contentCmd.AddCommand(contentSweepCmd)
	rootCmd.AddCommand(contentCmd)
}

func runContentSweep(cmd *cobra.Command, _ []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	removed, err := updateService.SweepContent(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to sweep content: %w", err)
	}
	cmd.Printf("Removed %d blobs\n", removed)
	return nil
}
