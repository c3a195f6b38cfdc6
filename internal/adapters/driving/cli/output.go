package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printKey(cmd *cobra.Command, k *driving.KeyView) {
	cmd.Printf("Key: %s\n", k.Key)
	if k.Description != "" {
		cmd.Printf("  Description: %s\n", k.Description)
	}
	cmd.Printf("  Actions:     %s\n", joinActions(k.Actions))
	cmd.Printf("  Indexes:     %s\n", strings.Join(k.Indexes, ", "))
	cmd.Printf("  Expires:     %s\n", formatOptionalTime(k.ExpiresAt, "never"))
	cmd.Printf("  Created:     %s\n", k.CreatedAt.Format(timeLayout))
	cmd.Printf("  Updated:     %s\n", k.UpdatedAt.Format(timeLayout))
}

func printTask(cmd *cobra.Command, t *domain.Task) {
	cmd.Printf("Task %d: %s on %s [%s]\n", t.ID, t.Content.Kind, t.IndexUID, t.Status)
	switch {
	case t.Content.DocumentAddition != nil:
		add := t.Content.DocumentAddition
		cmd.Printf("  Content:     %s\n", add.ContentID)
		cmd.Printf("  Documents:   %d\n", add.DocumentsCount)
		cmd.Printf("  Merge:       %s\n", add.MergeStrategy)
		if add.PrimaryKey != "" {
			cmd.Printf("  Primary key: %s\n", add.PrimaryKey)
		}
	case t.Content.DocumentDeletion != nil:
		cmd.Printf("  Documents:   %s\n", strings.Join(t.Content.DocumentDeletion.IDs, ", "))
	}
	cmd.Printf("  Enqueued:    %s\n", t.CreatedAt.Format(timeLayout))
	if t.StartedAt != nil {
		cmd.Printf("  Started:     %s\n", t.StartedAt.Format(timeLayout))
	}
	if t.FinishedAt != nil {
		cmd.Printf("  Finished:    %s\n", t.FinishedAt.Format(timeLayout))
	}
	if t.Error != "" {
		cmd.Printf("  Error:       %s\n", t.Error)
	}
}

func joinActions(actions []domain.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

func formatOptionalTime(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.Format(time.RFC3339)
}

func parseActions(names []string) []domain.Action {
	actions := make([]domain.Action, 0, len(names))
	for _, n := range names {
		actions = append(actions, domain.Action(strings.TrimSpace(n)))
	}
	return actions
}

// parseExpiry parses an RFC 3339 timestamp. "never" and "" clear it.
func parseExpiry(s string) (*time.Time, error) {
	if s == "" || s == "never" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry %q: expected RFC 3339", s)
	}
	return &t, nil
}
