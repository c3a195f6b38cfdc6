// Package file provides the TOML-backed ConfigStore.
//
// The file lives at <config dir>/config.toml. Every key is optional; keys
// that are absent keep their default value. Durations are written as Go
// duration strings such as "30s".
package file
