package ports

import (
	"context"

	"seqtriage/domain/record"
)

// RecordSource pulls raw discovery records from an upstream store: a graph
// database, a spreadsheet drop, or a JSON-lines export. Implementations
// surface malformed rows as skips downstream, not as fetch errors; Fetch
// fails only when the source itself cannot be read.
type RecordSource interface {
	// Fetch returns every record the source holds, in source order.
	Fetch(ctx context.Context) ([]record.Raw, error)

	// Close releases the underlying connection or file handle.
	Close(ctx context.Context) error
}

// ReferenceSource provides the known-sequence corpus used for novelty
// recalibration. An empty corpus is valid and means full novelty.
type ReferenceSource interface {
	FetchReferences(ctx context.Context) ([]string, error)
}
