package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croptrust/gapanalysis-cli/internal/model"
	"github.com/croptrust/gapanalysis-cli/internal/store"
)

func newServeTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(newRouter(newServeTestStore(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListRuns_Empty(t *testing.T) {
	srv := httptest.NewServer(newRouter(newServeTestStore(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	assert.Empty(t, runs)
}

func TestRouter_RunScores(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunParams{Kind: model.RunKindGRS, SpeciesCount: 1})
	require.NoError(t, err)
	require.NoError(t, st.SaveScores(ctx, run.ID, []model.ScoreRow{
		{Species: "Cucurbita digitata", GRSex: 40},
	}))

	srv := httptest.NewServer(newRouter(st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/" + run.ID + "/scores")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []model.ScoreRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Cucurbita digitata", rows[0].Species)
	assert.Equal(t, 40.0, rows[0].GRSex)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	srv := httptest.NewServer(newRouter(newServeTestStore(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/runs/no-such-run")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_LatestAssessment(t *testing.T) {
	st := newServeTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunParams{Kind: model.RunKindCombine, SpeciesCount: 1})
	require.NoError(t, err)
	mean := 50.0
	require.NoError(t, st.SaveAssessments(ctx, run.ID, []model.FinalAssessment{
		{Species: "Vigna unguiculata", FCScMean: &mean, MeanClass: "LP"},
	}))

	srv := httptest.NewServer(newRouter(st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/assessments/Vigna%20unguiculata")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fa model.FinalAssessment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fa))
	assert.Equal(t, "Vigna unguiculata", fa.Species)
	assert.Equal(t, "LP", fa.MeanClass)
}

func TestRouter_LatestAssessment_NotFound(t *testing.T) {
	srv := httptest.NewServer(newRouter(newServeTestStore(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/assessments/Zea%20perennis")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGracefulShutdown_DrainsInFlightRequests(t *testing.T) {
	release := make(chan struct{})
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.WriteHeader(http.StatusOK)
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	// Let the request reach the handler, then finish it mid-shutdown.
	time.Sleep(100 * time.Millisecond)
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(release)
	}()

	gracefulShutdown(srv, 5*time.Second)

	select {
	case code := <-status:
		assert.Equal(t, http.StatusOK, code, "in-flight request must complete, not be aborted")
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}
}
