// Package pebblekv provides the API key store on top of an embedded
// cockroachdb/pebble environment.
//
// # Layout
//
// An Env is one pebble database under a fixed subpath of the data
// directory. Tables are key prefixes inside it:
//
//   - 'k' + key id: the msgpack-encoded domain.Key record
//   - 'g' + grant key: the msgpack-encoded expiry of one inverted grant
//
// A grant key is [8 bytes key id][1 byte action code][optional index name].
// The index name has no length prefix and is always the last field, so
// every grant of a key shares the 9-byte-or-shorter id prefix and can be
// found with one prefix scan.
//
// # Concurrency
//
// Writers are serialised per Env; every mutation is a single atomic pebble
// batch. Readers use pebble's point-in-time iterators and snapshots and
// never wait for a writer.
package pebblekv
