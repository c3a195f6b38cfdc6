// Package file provides a filesystem-backed ContentStore.
//
// Blobs are written under the updates directory of the data directory:
//
//	<data dir>/updates/tmp/           partial blobs, removed on failure and at open
//	<data dir>/updates/updates_files/ persisted blobs, one file per content ID
//
// A blob becomes visible only when its writer is persisted: the partial file
// is flushed, fsynced and renamed into updates_files, and the directory is
// fsynced. Each blob holds one compact JSON document per line.
package file
