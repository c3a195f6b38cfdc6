// Package ndjson decodes newline-delimited JSON payloads: one object per
// line, blank lines ignored.
package ndjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure Decoder implements the interface.
var _ driven.DocumentDecoder = (*Decoder)(nil)

// Decoder handles the ndjson payload format.
type Decoder struct{}

// New creates a new NDJSON decoder.
func New() *Decoder {
	return &Decoder{}
}

// Format returns domain.FormatNDJSON.
func (d *Decoder) Format() domain.DocumentFormat {
	return domain.FormatNDJSON
}

// Decode emits each object in the stream. The stream decoder treats any
// whitespace, newlines included, as a separator, so blank lines are skipped.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, emit func(domain.Document) error) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		var doc domain.Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("%w: document %d: %v", domain.ErrMalformedPayload, count, err)
		}
		if doc == nil {
			return count, fmt.Errorf("%w: document %d is null", domain.ErrMalformedPayload, count)
		}
		if err := emit(doc); err != nil {
			return count, err
		}
		count++
	}
}
