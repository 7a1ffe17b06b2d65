package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
	"github.com/sethyboi74/odemasterpro/internal/config"
	"github.com/sethyboi74/odemasterpro/internal/store"
	"github.com/sethyboi74/odemasterpro/internal/workshop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*httptest.Server, store.Repository) {
	t.Helper()
	logger := zap.NewNop()
	repo := store.NewMemoryStore()
	handlers := NewHandlers(logger, repo, workshop.NewAnalyzer(logger), workshop.NewPatcher(logger))
	srv := New(logger, config.ServerConfig{Addr: ":0"}, handlers)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		http.DefaultClient.CloseIdleConnections()
	})
	return ts, repo
}

func doJSON(t *testing.T, method, url string, body string, out interface{}) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	var created schemas.Project
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects",
		`{"name": "landing-page", "files": [{"name": "index.html", "kind": "html", "content": "<html></html>"}]}`,
		&created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "landing-page", created.Name)

	var fetched schemas.Project
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/"+created.ID, "", &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, fetched.ID)

	var listing struct {
		Count    int               `json:"count"`
		Projects []schemas.Project `json:"projects"`
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects", "", &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, listing.Count)

	var updated schemas.Project
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/projects/"+created.ID,
		`{"name": "landing-page-v2", "files": []}`, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "landing-page-v2", updated.Name)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/projects/"+created.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/projects/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProject_MissingName(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/projects", `{"name": "  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"files": [{"name": "styles.css", "kind": "css", "content": "body { margin: 0; }"}]}`
	var report schemas.AnalysisReport
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/analyze", body, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, report.Rules, 1)
	assert.Equal(t, "body", report.Rules[0].Selector)
}

func TestAnalyzeEndpoint_NoFiles(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/analyze", `{"files": []}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApplyEndpoint_Hints(t *testing.T) {
	ts, _ := newTestServer(t)

	doc := "<html>\n<head>\n<script src=\"https://cdn.example.com/lib.js\"></script>\n</head>\n</html>"
	payload, err := json.Marshal(map[string]string{"buffer": doc, "target": "head"})
	require.NoError(t, err)

	var result schemas.PatchResult
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/apply", string(payload), &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, schemas.PlacementHead, result.Placement)
	assert.Contains(t, result.Buffer, `rel="prefetch"`)
}

func TestApplyEndpoint_RuleNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	payload, err := json.Marshal(map[string]string{
		"buffer":  "body { margin: 0; }",
		"target":  ".missing",
		"content": "color: red;",
	})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/apply", string(payload), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalysesEndpoints(t *testing.T) {
	ts, repo := newTestServer(t)

	project, err := repo.CreateProject(context.Background(), "p", []schemas.SourceFile{
		{Name: "main.css", Kind: schemas.FileCSS, Content: ".hero { color: blue; }"},
	})
	require.NoError(t, err)

	var record schemas.AnalysisRecord
	resp := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/v1/projects/%s/analyses", ts.URL, project.ID), "", &record)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, record.Report.Rules, 1)

	var listing struct {
		Count    int                      `json:"count"`
		Analyses []schemas.AnalysisRecord `json:"analyses"`
	}
	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/v1/projects/%s/analyses", ts.URL, project.ID), "", &listing)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, listing.Count)
}

func TestRateLimiter(t *testing.T) {
	logger := zap.NewNop()
	repo := store.NewMemoryStore()
	handlers := NewHandlers(logger, repo, workshop.NewAnalyzer(logger), workshop.NewPatcher(logger))
	srv := New(logger, config.ServerConfig{Addr: ":0", RateLimit: 1, RateBurst: 1}, handlers)
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		ts.Close()
		http.DefaultClient.CloseIdleConnections()
	}()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestGracefulShutdown(t *testing.T) {
	logger := zap.NewNop()
	repo := store.NewMemoryStore()
	handlers := NewHandlers(logger, repo, workshop.NewAnalyzer(logger), workshop.NewPatcher(logger))
	srv := New(logger, config.ServerConfig{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: 2 * time.Second,
	}, handlers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
