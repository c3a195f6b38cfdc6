package domain

// ContentID identifies a write-once content blob. IDs are freshly
// generated for every blob and never reused.
type ContentID string

// String returns the string representation.
func (c ContentID) String() string {
	return string(c)
}

// DocumentFormat is the declared encoding of an uploaded payload.
type DocumentFormat string

// Supported payload formats.
const (
	FormatJSON   DocumentFormat = "json"
	FormatNDJSON DocumentFormat = "ndjson"
	FormatCSV    DocumentFormat = "csv"
)

// IsValid returns true if the format is recognised.
func (f DocumentFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatNDJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f DocumentFormat) String() string {
	return string(f)
}

// Document is a normalised document: a flat or nested JSON object.
type Document map[string]any
