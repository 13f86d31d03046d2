package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/avnav/fleetsim/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
	if c.apiKey != "secret" {
		t.Errorf("expected apiKey=secret, got %s", c.apiKey)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := New(server.URL, "").Healthcheck(); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if err := New(server.URL, "").Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if err := New(url, "").Healthcheck(); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestMetadataFor(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	run := &core.Run{ID: "r-1", Name: "night", Map: core.MapCity, StartTime: start}

	meta := MetadataFor(run, 42, start.Add(90*time.Second))
	if meta.Duration != 90*time.Second {
		t.Errorf("expected 90s, got %v", meta.Duration)
	}
	if meta.Ticks != 42 || meta.RunID != "r-1" || meta.Map != core.MapCity {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/runs/add" {
			t.Errorf("expected path /api/v1/runs/add, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "runId", "runName", "map", "duration", "ticks"} {
			received[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("failed to get file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "night_20240501_080000.json.gz")
	if err := os.WriteFile(path, []byte("test content"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	err := New(server.URL, "mysecret").Upload(path, UploadMetadata{
		RunID:    "r-1",
		Name:     "night",
		Map:      core.MapWarehouse,
		Duration: 3600500 * time.Millisecond,
		Ticks:    36005,
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := map[string]string{
		"secret":   "mysecret",
		"filename": "night_20240501_080000.json.gz",
		"runId":    "r-1",
		"runName":  "night",
		"map":      "warehouse",
		"duration": "3600.500000",
		"ticks":    "36005",
	}
	for k, v := range want {
		if received[k] != v {
			t.Errorf("expected %s=%s, got %s", k, v, received[k])
		}
	}
	if string(content) != "test content" {
		t.Errorf("expected file content 'test content', got '%s'", content)
	}
}

func TestUpload_FileNotFound(t *testing.T) {
	if err := New("http://localhost:5000", "secret").Upload("/nonexistent/file.json.gz", UploadMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json.gz")
	_ = os.WriteFile(path, []byte("content"), 0o644)

	if err := New(server.URL, "wrong-secret").Upload(path, UploadMetadata{}); err == nil {
		t.Error("expected error for 403 response")
	}
}
