package source

import "errors"

// ErrUnavailable is returned when the backing storage for a source is gone
// (file deleted, mapping torn down, device unmounted). Callers treat it as
// non-fatal: the affected range is reported as unavailable and the viewer
// keeps running.
var ErrUnavailable = errors.New("source unavailable")

// LineSource is the core abstraction for accessing lines of a dataset.
// The engine only interacts with this interface; it never sees files,
// sockets or decoders directly.
//
// Implementations must be safe for concurrent readers: the load coordinator
// fetches gaps from several goroutines at once and the search engine scans
// in parallel with rendering.
type LineSource interface {
	// LineCount returns total number of lines in the dataset.
	LineCount() int

	// FetchLines returns lines [start, end), exactly end-start entries.
	// The range must lie within [0, LineCount()); callers clamp first.
	FetchLines(start, end int) ([][]byte, error)
}
