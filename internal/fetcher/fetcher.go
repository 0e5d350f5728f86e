// Package fetcher downloads occurrence exports and raster dataset bundles
// over HTTP, with per-host rate limits, retries, and conditional re-fetch.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for downloading remote datasets.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)

	// DownloadIfChanged fetches the URL only if the server-side ETag differs
	// from the given one. Returns (body, newETag, changed, error); on a 304
	// the body is nil and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}
