package formats

import (
	"github.com/custodia-labs/sercha-server/internal/formats/csvdoc"
	"github.com/custodia-labs/sercha-server/internal/formats/jsondoc"
	"github.com/custodia-labs/sercha-server/internal/formats/ndjson"
)

// RegisterDefaults registers the json, ndjson and csv decoders.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(jsondoc.New())
	r.Register(ndjson.New())
	r.Register(csvdoc.New())
}
