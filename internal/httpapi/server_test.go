package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/internal/media"
	"github.com/videochop/videochop/internal/tasks"
	"github.com/videochop/videochop/internal/ytdlp"
)

type stubDownloader struct {
	err error
}

func (d *stubDownloader) Probe(_ context.Context, _ string) (ytdlp.Metadata, error) {
	return ytdlp.Metadata{}, nil
}

func (d *stubDownloader) Download(_ context.Context, opts ytdlp.DownloadOptions) error {
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(opts.OutputPath, []byte("media"), 0644)
}

type stubOperator struct {
	duration float64
}

func (o *stubOperator) Probe() (media.Info, error) {
	return media.Info{DurationSec: o.duration, FrameRate: 30}, nil
}

func (o *stubOperator) ExtractClip(_, _ float64, targetPath string) error {
	return os.WriteFile(targetPath, []byte("clip"), 0644)
}

type testEnv struct {
	server   *Server
	manager  *jobs.Manager
	videoDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	videoDir := t.TempDir()
	manager := jobs.NewManager(nil, videoDir, 24*time.Hour)
	pool := jobs.NewPool(2)
	t.Cleanup(pool.Stop)

	executor := tasks.NewExecutor(manager, &stubDownloader{},
		func(_ string) media.Operator { return &stubOperator{duration: 20} },
		videoDir, "http://localhost:3000")

	server := NewServer(manager, pool, executor, "http://localhost:3000",
		WithSweepSchedule("@hourly"))
	return &testEnv{server: server, manager: manager, videoDir: videoDir}
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestProcessVideo_MissingParameters(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/process_video", url.Values{
		"youtube_url": {"https://example.com/watch?v=x"},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Missing required parameters", decodeBody(t, rr)["error"])
}

func TestProcessVideo_InvalidTimestamp(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/process_video", url.Values{
		"youtube_url":      {"https://example.com/watch?v=x"},
		"input_timestamp":  {"five seconds"},
		"output_timestamp": {"00:00:10.000"},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "Invalid timestamp format")
}

func TestProcessVideo_EndMustExceedStart(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/process_video", url.Values{
		"youtube_url":      {"https://example.com/watch?v=x"},
		"input_timestamp":  {"00:00:10.000"},
		"output_timestamp": {"00:00:10.000"},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "must be greater")
}

func TestProcessVideo_CreatesJobAndCompletes(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/process_video", url.Values{
		"youtube_url":      {"https://example.com/watch?v=x"},
		"input_timestamp":  {"00:00:05.000"},
		"output_timestamp": {"00:00:10.000"},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, "http://localhost:3000/job/"+jobID, body["status_url"])

	require.Eventually(t, func() bool {
		rec, err := env.manager.Get(jobID)
		return err == nil && rec.Status == jobs.StatusCompleted
	}, time.Second, 10*time.Millisecond)

	rec, err := env.manager.Get(jobID)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/download/"+jobID+".mp4", rec.DownloadURL)
}

func TestProcessVideo_AcceptsJSONBody(t *testing.T) {
	env := newTestEnv(t)

	payload := `{"youtube_url":"https://example.com/watch?v=x","input_timestamp":"00:00:01","output_timestamp":"00:00:02"}`
	req := httptest.NewRequest(http.MethodPost, "/process_video", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDownloadVideo_RejectsUnknownQuality(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/download_video", url.Values{
		"youtube_url": {"https://example.com/watch?v=x"},
		"quality":     {"480p"},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractAudio_CreatesJob(t *testing.T) {
	env := newTestEnv(t)

	rr := postForm(t, env.server.Handler(), "/extract_audio", url.Values{
		"youtube_url": {"https://example.com/watch?v=x"},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	jobID, _ := decodeBody(t, rr)["job_id"].(string)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		rec, err := env.manager.Get(jobID)
		return err == nil && rec.Status == jobs.StatusCompleted
	}, time.Second, 10*time.Millisecond)
}

func TestJobStatus_UnknownJobIs404(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/job/does-not-exist", nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Job not found", decodeBody(t, rr)["error"])
}

func TestDownload_ServesCompletedArtifact(t *testing.T) {
	env := newTestEnv(t)

	rec := env.manager.Create(jobs.KindClip, jobs.Request{SourceURL: "https://example.com/v"})
	artifact := rec.ID + ".mp4"
	require.NoError(t, os.WriteFile(filepath.Join(env.videoDir, artifact), []byte("clip-bytes"), 0644))
	require.NoError(t, env.manager.Update(rec.ID, jobs.StatusCompleted, jobs.WithOutputFile(artifact)))

	req := httptest.NewRequest(http.MethodGet, "/download/"+artifact, nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "clip-bytes", rr.Body.String())
	assert.Equal(t, "attachment; filename="+artifact, rr.Header().Get("Content-Disposition"))
}

func TestDownload_RejectsPathTraversal(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/download/..%5Cjobs.json", nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDownload_UnknownFileIs404(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/download/nope.mp4", nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "File not found", decodeBody(t, rr)["error"])
}

func TestHealth_ReportsNextSweep(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "next_sweep")
}
