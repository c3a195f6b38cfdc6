package formats

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.DecoderRegistry = (*Registry)(nil)

// Registry maps payload formats to their decoders.
type Registry struct {
	mu       sync.RWMutex
	decoders map[domain.DocumentFormat]driven.DocumentDecoder
}

// NewRegistry creates an empty decoder registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[domain.DocumentFormat]driven.DocumentDecoder),
	}
}

// Register adds a decoder, replacing any existing one for its format.
func (r *Registry) Register(d driven.DocumentDecoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[d.Format()] = d
}

// Get returns the decoder for a format.
func (r *Registry) Get(format domain.DocumentFormat) (driven.DocumentDecoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: payload format %q", domain.ErrUnsupportedType, format)
	}
	return d, nil
}

// Formats returns every registered format in sorted order.
func (r *Registry) Formats() []domain.DocumentFormat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]domain.DocumentFormat, 0, len(r.decoders))
	for f := range r.decoders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
