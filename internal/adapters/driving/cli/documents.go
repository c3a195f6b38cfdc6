package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Queue document changes",
	Long:  `Queue document additions and deletions against an index. Changes are applied by the task worker.`,
}

var documentsAddCmd = &cobra.Command{
	Use:   "add [index] [file]",
	Short: "Queue documents for addition",
	Long: `Stages a JSON, NDJSON or CSV payload and queues a document addition task.
Reads from stdin when the file is omitted or "-".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDocumentsAdd,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [index] [document-id...]",
	Short: "Queue documents for deletion",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runDocumentsDelete,
}

var documentsClearCmd = &cobra.Command{
	Use:   "clear [index]",
	Short: "Queue removal of every document of an index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsClear,
}

var (
	docFormat     string
	docPrimaryKey string
	docMerge      string
)

func init() {
	documentsAddCmd.Flags().StringVarP(&docFormat, "format", "f", "", "payload format: json, ndjson or csv (default from file extension)")
	documentsAddCmd.Flags().StringVar(&docPrimaryKey, "primary-key", "", "primary key attribute")
	documentsAddCmd.Flags().StringVar(&docMerge, "merge", string(domain.MergeReplace), "merge strategy: replace or update")

	documentsCmd.AddCommand(documentsAddCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsClearCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsAdd(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	index := args[0]
	path := "-"
	if len(args) == 2 {
		path = args[1]
	}

	format := domain.DocumentFormat(strings.ToLower(docFormat))
	if format == "" {
		format = formatFromPath(path)
	}

	var payload io.Reader
	if path == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("no payload: pass a file or pipe documents on stdin")
		}
		payload = in
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open payload: %w", err)
		}
		defer f.Close()
		payload = f
	}

	update := driving.AddDocuments(payload, format, docPrimaryKey, domain.MergeStrategy(docMerge))
	task, err := updateService.Register(cmd.Context(), index, update)
	if err != nil {
		return fmt.Errorf("failed to queue documents: %w", err)
	}
	printTask(cmd, task)
	return nil
}

// formatFromPath infers the payload format from the file extension.
// Stdin and unknown extensions default to JSON.
func formatFromPath(path string) domain.DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl":
		return domain.FormatNDJSON
	case ".csv":
		return domain.FormatCSV
	default:
		return domain.FormatJSON
	}
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	task, err := updateService.Register(cmd.Context(), args[0], driving.DeleteDocuments(args[1:]))
	if err != nil {
		return fmt.Errorf("failed to queue deletion: %w", err)
	}
	printTask(cmd, task)
	return nil
}

func runDocumentsClear(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	task, err := updateService.Register(cmd.Context(), args[0], driving.ClearDocuments())
	if err != nil {
		return fmt.Errorf("failed to queue clear: %w", err)
	}
	printTask(cmd, task)
	return nil
}
