// Package formats provides the DocumentDecoder implementations for the
// payload formats accepted by document additions, and the registry that
// selects one by format tag.
//
// Decoders are registered with the Registry at startup via RegisterDefaults.
package formats
