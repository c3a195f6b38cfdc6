package domain

import (
	"encoding/json"
	"fmt"
)

// Action is a permission category granted by a Key.
//
// Each action has a stable single-byte code used in the persisted
// inverted index. Codes are assigned explicitly in actionCodes and must
// never change or be derived from declaration order; new actions get new
// codes.
type Action string

// Available actions.
const (
	// ActionAll grants every action.
	ActionAll Action = "*"
	// ActionSearch allows searching an index.
	ActionSearch Action = "search"
	// ActionDocumentsAdd allows adding or updating documents.
	ActionDocumentsAdd Action = "documents.add"
	// ActionDocumentsGet allows reading documents.
	ActionDocumentsGet Action = "documents.get"
	// ActionDocumentsDelete allows deleting documents.
	ActionDocumentsDelete Action = "documents.delete"
	// ActionIndexesCreate allows creating indexes.
	ActionIndexesCreate Action = "indexes.create"
	// ActionIndexesGet allows reading index metadata.
	ActionIndexesGet Action = "indexes.get"
	// ActionIndexesUpdate allows updating index metadata.
	ActionIndexesUpdate Action = "indexes.update"
	// ActionIndexesDelete allows deleting indexes.
	ActionIndexesDelete Action = "indexes.delete"
	// ActionTasksGet allows reading tasks.
	ActionTasksGet Action = "tasks.get"
	// ActionSettingsGet allows reading index settings.
	ActionSettingsGet Action = "settings.get"
	// ActionSettingsUpdate allows updating index settings.
	ActionSettingsUpdate Action = "settings.update"
	// ActionStatsGet allows reading stats.
	ActionStatsGet Action = "stats.get"
	// ActionDumpsCreate allows creating dumps.
	ActionDumpsCreate Action = "dumps.create"
	// ActionDumpsGet allows reading dump status.
	ActionDumpsGet Action = "dumps.get"
	// ActionVersion allows reading the server version.
	ActionVersion Action = "version"
	// ActionKeysGet allows reading API keys.
	ActionKeysGet Action = "keys.get"
	// ActionKeysCreate allows creating API keys.
	ActionKeysCreate Action = "keys.create"
	// ActionKeysUpdate allows updating API keys.
	ActionKeysUpdate Action = "keys.update"
	// ActionKeysDelete allows deleting API keys.
	ActionKeysDelete Action = "keys.delete"
)

// actionCodes is the persisted code table (version 1).
var actionCodes = map[Action]byte{
	ActionAll:             0,
	ActionSearch:          1,
	ActionDocumentsAdd:    2,
	ActionDocumentsGet:    3,
	ActionDocumentsDelete: 4,
	ActionIndexesCreate:   5,
	ActionIndexesGet:      6,
	ActionIndexesUpdate:   7,
	ActionIndexesDelete:   8,
	ActionTasksGet:        9,
	ActionSettingsGet:     10,
	ActionSettingsUpdate:  11,
	ActionStatsGet:        12,
	ActionDumpsCreate:     13,
	ActionDumpsGet:        14,
	ActionVersion:         15,
	ActionKeysGet:         16,
	ActionKeysCreate:      17,
	ActionKeysUpdate:      18,
	ActionKeysDelete:      19,
}

var actionsByCode = func() map[byte]Action {
	m := make(map[byte]Action, len(actionCodes))
	for a, c := range actionCodes {
		m[c] = a
	}
	return m
}()

// IsValid returns true if the action is recognised.
func (a Action) IsValid() bool {
	_, ok := actionCodes[a]
	return ok
}

// Code returns the persisted single-byte code for the action.
// The second return value is false for unrecognised actions.
func (a Action) Code() (byte, bool) {
	c, ok := actionCodes[a]
	return c, ok
}

// String returns the string representation.
func (a Action) String() string {
	return string(a)
}

// ActionFromCode resolves a persisted code back to its action.
func ActionFromCode(code byte) (Action, bool) {
	a, ok := actionsByCode[code]
	return a, ok
}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
	}
	return a, nil
}

// UnmarshalJSON rejects unknown action names.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AllActions returns every known action ordered by code.
func AllActions() []Action {
	out := make([]Action, 0, len(actionCodes))
	for c := 0; c < 256; c++ {
		if a, ok := actionsByCode[byte(c)]; ok {
			out = append(out, a)
		}
	}
	return out
}
