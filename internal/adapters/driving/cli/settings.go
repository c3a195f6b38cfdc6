package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Queue index settings changes",
}

var settingsUpdateCmd = &cobra.Command{
	Use:   "update [index]",
	Short: "Queue a settings update",
	Long: `Queues a partial settings update. Only settings whose flags are given
change; pass an empty value (e.g. --stop-words "") to clear a list.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsUpdate,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset [index]",
	Short: "Queue a reset of every setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

var (
	settingFilterable   []string
	settingSortable     []string
	settingDisplayed    []string
	settingSearchable   []string
	settingStopWords    []string
	settingRankingRules []string
	settingSynonyms     []string
	settingDistinct     string
)

func init() {
	flags := settingsUpdateCmd.Flags()
	flags.StringSliceVar(&settingFilterable, "filterable", nil, "filterable attributes")
	flags.StringSliceVar(&settingSortable, "sortable", nil, "sortable attributes")
	flags.StringSliceVar(&settingDisplayed, "displayed", nil, "displayed attributes")
	flags.StringSliceVar(&settingSearchable, "searchable", nil, "searchable attributes, by priority")
	flags.StringSliceVar(&settingStopWords, "stop-words", nil, "words ignored by search")
	flags.StringSliceVar(&settingRankingRules, "ranking-rules", nil, "ranking rules, in order")
	flags.StringArrayVar(&settingSynonyms, "synonym", nil, "synonyms as word=alt1,alt2 (repeatable)")
	flags.StringVar(&settingDistinct, "distinct", "", "distinct attribute")

	settingsCmd.AddCommand(settingsUpdateCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsUpdate(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	settings, err := settingsFromFlags(cmd)
	if err != nil {
		return err
	}

	task, err := updateService.Register(cmd.Context(), args[0], driving.UpdateSettings(settings))
	if err != nil {
		return fmt.Errorf("failed to queue settings update: %w", err)
	}
	printTask(cmd, task)
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	if updateService == nil {
		return errors.New("update service not configured")
	}

	task, err := updateService.Register(cmd.Context(), args[0], driving.UpdateSettings(domain.Settings{Reset: true}))
	if err != nil {
		return fmt.Errorf("failed to queue settings reset: %w", err)
	}
	printTask(cmd, task)
	return nil
}

func settingsFromFlags(cmd *cobra.Command) (domain.Settings, error) {
	var s domain.Settings
	flags := cmd.Flags()

	lists := []struct {
		name   string
		values []string
		dst    **[]string
	}{
		{"filterable", settingFilterable, &s.FilterableAttributes},
		{"sortable", settingSortable, &s.SortableAttributes},
		{"displayed", settingDisplayed, &s.DisplayedAttributes},
		{"searchable", settingSearchable, &s.SearchableAttributes},
		{"stop-words", settingStopWords, &s.StopWords},
		{"ranking-rules", settingRankingRules, &s.RankingRules},
	}
	for _, l := range lists {
		if !flags.Changed(l.name) {
			continue
		}
		values := nonEmpty(l.values)
		*l.dst = &values
	}

	if flags.Changed("synonym") {
		synonyms := make(map[string][]string, len(settingSynonyms))
		for _, entry := range settingSynonyms {
			word, alts, ok := strings.Cut(entry, "=")
			word = strings.TrimSpace(word)
			if !ok || word == "" {
				return s, fmt.Errorf("invalid synonym %q: expected word=alt1,alt2", entry)
			}
			synonyms[word] = nonEmpty(strings.Split(alts, ","))
		}
		s.Synonyms = &synonyms
	}
	if flags.Changed("distinct") {
		s.DistinctAttribute = &settingDistinct
	}
	return s, nil
}

// nonEmpty trims values and drops blanks, so an empty flag value clears a list.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
