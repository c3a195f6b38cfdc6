// Package jsondoc decodes JSON payloads: an array of objects or a single
// object.
package jsondoc

import (
	"bufio"
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

// Decoder handles the json payload format.
type Decoder struct{}

// New creates a new JSON decoder.
func New() *Decoder {
	return &Decoder{}
}

// Format returns domain.FormatJSON.
func (d *Decoder) Format() domain.DocumentFormat {
	return domain.FormatJSON
}

// Decode emits each object of a top-level array, or the single top-level
// object. Numbers are kept as json.Number so no precision is lost.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, emit func(domain.Document) error) (int, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return 0, domain.ErrMissingPayload
	}
	if err != nil {
		return 0, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	count := 0
	switch first {
	case '{':
		doc, err := decodeObject(dec, 0)
		if err != nil {
			return 0, err
		}
		if err := emit(doc); err != nil {
			return 0, err
		}
		count = 1
	case '[':
		if _, err := dec.Token(); err != nil {
			return 0, malformed(0, err)
		}
		for dec.More() {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			doc, err := decodeObject(dec, count)
			if err != nil {
				return count, err
			}
			if err := emit(doc); err != nil {
				return count, err
			}
			count++
		}
		if _, err := dec.Token(); err != nil {
			return count, malformed(count, err)
		}
	default:
		return 0, fmt.Errorf("%w: expected a JSON array or object, found %q", domain.ErrMalformedPayload, first)
	}

	// Anything after the top-level value is an error.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return count, fmt.Errorf("%w: unexpected data after top-level value", domain.ErrMalformedPayload)
	}
	return count, nil
}

func decodeObject(dec *json.Decoder, n int) (domain.Document, error) {
	var doc domain.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed(n, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d is null", domain.ErrMalformedPayload, n)
	}
	return doc, nil
}

func malformed(n int, err error) error {
	return fmt.Errorf("%w: document %d: %v", domain.ErrMalformedPayload, n, err)
}

// peekNonSpace skips leading JSON whitespace and returns the next byte
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\n', '\r':
		default:
			return b, br.UnreadByte()
		}
	}
}
