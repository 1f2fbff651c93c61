package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for addressing failures. Callers match them with errors.Is.
var (
	// ErrCollectionNotFound indicates a query addressed a collection that was
	// never created.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrContentNotFound indicates a lookup by content id found no entry.
	ErrContentNotFound = errors.New("content not found")

	// ErrCancelled indicates the caller cancelled an in-flight generation.
	ErrCancelled = errors.New("generation cancelled")
)

// ValidationError rejects a malformed GenerationRequest before any pipeline
// state transition; no events are emitted for it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: field %q %s", e.Field, e.Reason)
}

// ItemFailure records why a single item of an upsert batch was not written.
type ItemFailure struct {
	ID  string
	Err error
}

// IndexWriteError reports a partial or total upsert failure. Items that
// embedded successfully are committed; Failed lists the ones that were not.
type IndexWriteError struct {
	Collection string
	Written    int
	Failed     []ItemFailure
}

func (e *IndexWriteError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.ID
	}
	return fmt.Sprintf("index write to %q: %d written, %d failed (%s)",
		e.Collection, e.Written, len(e.Failed), strings.Join(ids, ", "))
}

// GenerationFailedError is fatal to the pipeline. It carries the partial
// strategy for diagnostics so a failed draft is never silently fabricated.
type GenerationFailedError struct {
	Stage    string
	Strategy *ContentStrategy
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }
