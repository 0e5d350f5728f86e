package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptrust/gapanalysis-cli/internal/fetcher"
)

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "plain file", url: "https://hosted-datasets.gbif.org/datasets/occurrences.zip", want: "occurrences.zip"},
		{name: "nested path", url: "https://dataverse.harvard.edu/api/access/datafile/rasters.zip", want: "rasters.zip"},
		{name: "query ignored", url: "https://api.gbif.org/v1/download/0012345.zip?user=x", want: "0012345.zip"},
		{name: "no path", url: "https://api.gbif.org", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileNameFromURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newDatasetServer(t *testing.T, payload, etag string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestFetcher(t *testing.T) fetcher.Fetcher {
	t.Helper()
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	})
}

func TestFetchDataset_RecordsETagAndSkipsUnchanged(t *testing.T) {
	const payload = "species,latitude,longitude,type\n"
	srv, hits := newDatasetServer(t, payload, `"v1"`)
	target := filepath.Join(t.TempDir(), "occurrences.csv")
	f := newTestFetcher(t)
	ctx := context.Background()

	require.NoError(t, fetchDataset(ctx, f, srv.URL, target, false))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	tag, err := os.ReadFile(etagSidecar(target))
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(tag))

	// Second fetch sends the recorded tag and leaves the file untouched.
	require.NoError(t, fetchDataset(ctx, f, srv.URL, target, false))
	assert.EqualValues(t, 2, hits.Load())
	data, err = os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestFetchDataset_MissingTargetIgnoresSidecar(t *testing.T) {
	srv, _ := newDatasetServer(t, "payload", `"v1"`)
	target := filepath.Join(t.TempDir(), "bundle.zip")

	// A stale sidecar without its dataset must not suppress the download.
	require.NoError(t, os.WriteFile(etagSidecar(target), []byte(`"v1"`), 0o644))

	require.NoError(t, fetchDataset(context.Background(), newTestFetcher(t), srv.URL, target, false))
	_, err := os.Stat(target)
	require.NoError(t, err)
}

func TestFetchDataset_ForceRedownloads(t *testing.T) {
	srv, hits := newDatasetServer(t, "payload", `"v1"`)
	target := filepath.Join(t.TempDir(), "bundle.zip")
	f := newTestFetcher(t)
	ctx := context.Background()

	require.NoError(t, fetchDataset(ctx, f, srv.URL, target, false))
	require.NoError(t, fetchDataset(ctx, f, srv.URL, target, true))

	assert.EqualValues(t, 2, hits.Load())
	// Force clears the sidecar so the next conditional fetch starts fresh.
	_, err := os.Stat(etagSidecar(target))
	assert.True(t, os.IsNotExist(err))
}
