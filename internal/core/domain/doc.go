// Package domain holds the control plane's entities and their invariants.
//
// Keys grant Actions on indexes and derive the Grants stored in the
// inverted permission index. Tasks record queued mutations against an
// index; their Content names the operation and, for document additions,
// the ContentID of the staged blob. Settings, DocumentFormat and
// MergeStrategy describe what a task applies.
//
// Errors are sentinels matched with errors.Is. The payload family all
// match ErrPayload; IsClientError separates rejections caused by the
// caller from storage failures.
//
// The package imports the standard library only. Every other package
// depends on it, never the reverse.
package domain
