package ports

import (
	"context"
	"io"
)

// StreamOpener opens the raw media bytes behind a track URI.
// Reads may fail mid-stream; the caller surfaces that as a sink error.
type StreamOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}
