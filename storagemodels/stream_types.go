package storagemodels

import (
	"time"
)

// StreamBatch is one non-empty page of a scan stream, or the error that ended it.
type StreamBatch[T any] struct {
	Items []T        // Validated items of this page
	Err   error      // Set on the final element when the stream failed
	Meta  StreamMeta // Metadata about this page
}

// StreamMeta contains metadata about a streamed page
type StreamMeta struct {
	PageNumber   int       // Backend page number (1-based)
	ScannedCount int       // Items inspected for this page
	Timestamp    time.Time // When the page was retrieved
}

// StreamOptions configures streaming behavior
type StreamOptions struct {
	BufferSize      int                  // Channel buffer size (default: 4)
	PageSize        int32                // Items per page (default: 100)
	Filter          *Condition           // Optional filter applied to every page
	ConsistentRead  bool                 // Strongly consistent pages
	ProgressHandler func(StreamProgress) // Optional progress callback
}

// StreamProgress tracks streaming progress
type StreamProgress struct {
	ItemsProcessed int64     // Total items delivered
	PagesProcessed int       // Total pages read, including empty ones
	LastKey        Token     // Last evaluated key
	StartTime      time.Time // When streaming started
	CurrentRate    float64   // Items per second
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns default streaming options
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize: 4,
		PageSize:   100,
	}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		opts.BufferSize = size
	}
}

// WithPageSize sets the page size
func WithPageSize(size int32) StreamOption {
	return func(opts *StreamOptions) {
		opts.PageSize = size
	}
}

// WithStreamFilter filters every page of the stream
func WithStreamFilter(expression string, names map[string]string, values map[string]any) StreamOption {
	return func(opts *StreamOptions) {
		opts.Filter = &Condition{Expression: expression, Names: names, Values: values}
	}
}

// WithStreamConsistentRead requests strongly consistent pages
func WithStreamConsistentRead() StreamOption {
	return func(opts *StreamOptions) {
		opts.ConsistentRead = true
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}
