package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// DocumentDecoder parses one payload format into normalised documents.
type DocumentDecoder interface {
	// Format returns the payload format this decoder handles.
	Format() domain.DocumentFormat

	// Decode reads the payload and emits each document in order.
	// Returns the number of documents emitted. Parse failures wrap
	// domain.ErrMalformedPayload.
	Decode(ctx context.Context, r io.Reader, emit func(domain.Document) error) (int, error)
}

// DecoderRegistry selects the decoder for a payload format.
type DecoderRegistry interface {
	// Register adds a decoder, replacing any existing one for its format.
	Register(d DocumentDecoder)

	// Get returns the decoder for a format.
	// Returns domain.ErrUnsupportedType if none is registered.
	Get(format domain.DocumentFormat) (DocumentDecoder, error)

	// Formats returns every registered format.
	Formats() []domain.DocumentFormat
}
