package domain

import "fmt"

// Settings is a partial update of an index's search settings.
// Nil fields are left unchanged by the execution worker.
type Settings struct {
	// FilterableAttributes lists attributes usable in filters.
	FilterableAttributes *[]string `json:"filterableAttributes,omitempty"`

	// SortableAttributes lists attributes usable for sorting.
	SortableAttributes *[]string `json:"sortableAttributes,omitempty"`

	// DisplayedAttributes lists attributes returned in results.
	DisplayedAttributes *[]string `json:"displayedAttributes,omitempty"`

	// SearchableAttributes lists attributes searched, by priority.
	SearchableAttributes *[]string `json:"searchableAttributes,omitempty"`

	// StopWords lists words ignored by search.
	StopWords *[]string `json:"stopWords,omitempty"`

	// Synonyms maps a word to its synonyms.
	Synonyms *map[string][]string `json:"synonyms,omitempty"`

	// DistinctAttribute deduplicates results on this attribute.
	DistinctAttribute *string `json:"distinctAttribute,omitempty"`

	// RankingRules orders the ranking criteria.
	RankingRules *[]string `json:"rankingRules,omitempty"`

	// Reset restores every setting to its default, ignoring other fields.
	Reset bool `json:"reset,omitempty"`
}

// IsEmpty returns true if the update changes nothing.
func (s *Settings) IsEmpty() bool {
	return !s.Reset &&
		s.FilterableAttributes == nil &&
		s.SortableAttributes == nil &&
		s.DisplayedAttributes == nil &&
		s.SearchableAttributes == nil &&
		s.StopWords == nil &&
		s.Synonyms == nil &&
		s.DistinctAttribute == nil &&
		s.RankingRules == nil
}

// Validate rejects updates that change nothing or carry blank attribute names.
func (s *Settings) Validate() error {
	if s.IsEmpty() {
		return fmt.Errorf("%w: settings update is empty", ErrInvalidInput)
	}
	for name, attrs := range map[string]*[]string{
		"filterableAttributes": s.FilterableAttributes,
		"sortableAttributes":   s.SortableAttributes,
		"displayedAttributes":  s.DisplayedAttributes,
		"searchableAttributes": s.SearchableAttributes,
		"rankingRules":         s.RankingRules,
	} {
		if attrs == nil {
			continue
		}
		for _, a := range *attrs {
			if a == "" {
				return fmt.Errorf("%w: %s contains an empty name", ErrInvalidInput, name)
			}
		}
	}
	return nil
}
