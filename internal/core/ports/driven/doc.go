// Package driven declares the storage and decoding interfaces the services
// call out to.
//
//   - AuthStore: key records plus their inverted (key, action, index) grants
//   - TaskStore: the durable queue, ordered by strictly increasing TaskID
//   - ContentStore: write-once blobs referenced by document additions
//   - DecoderRegistry: the DocumentDecoder for each payload format
//   - ConfigStore: the server configuration file
//   - TaskExecutor: applies a claimed task; only the Dispatcher uses one
//
// Implementations live under internal/adapters/driven and internal/formats.
// This package imports domain only.
package driven
