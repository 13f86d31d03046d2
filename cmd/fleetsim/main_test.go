package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/avnav/fleetsim/internal/api"
	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/internal/dispatcher"
	"github.com/avnav/fleetsim/internal/engine"
	"github.com/avnav/fleetsim/internal/sim"
	"github.com/avnav/fleetsim/internal/storage/memory"
	wsstorage "github.com/avnav/fleetsim/internal/storage/websocket"
	"github.com/avnav/fleetsim/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Logger = slog.New(slog.DiscardHandler)
	os.Exit(m.Run())
}

func TestHttpToWS(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/api", httpToWS("http://localhost:5000/api/"))
	assert.Equal(t, "wss://example.com", httpToWS("https://example.com"))
	assert.Equal(t, "ws://already", httpToWS("ws://already"))
}

func TestCreateStorageBackend(t *testing.T) {
	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, storageDeps{})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
	assert.Nil(t, dbOf(b))

	b, err = createStorageBackend(config.StorageConfig{
		Type:      "websocket",
		WebSocket: config.WebSocketConfig{URL: "http://localhost:1/stream"},
	}, storageDeps{})
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "mongo"}, storageDeps{})
	assert.Error(t, err)
}

func TestCreateStorageBackend_SQLite(t *testing.T) {
	b, err := createStorageBackend(config.StorageConfig{Type: "sqlite"}, storageDeps{OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	assert.NotNil(t, dbOf(b))
}

func TestBindFlags_OverrideConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.SetDefaults()

	var opts options
	fs := newFlagSet(&opts)
	require.NoError(t, fs.Parse([]string{"--map", "city", "--ticks", "12", "--console"}))
	require.NoError(t, bindFlags(fs))

	assert.Equal(t, "city", config.GetSimConfig().Map)
	assert.Equal(t, 12, config.GetSimConfig().MaxTicks)
	assert.Equal(t, "memory", config.GetStorageConfig().Type, "unset flags keep the config value")
	assert.True(t, opts.Console)
	assert.Equal(t, AppName, opts.RunName)
}

func TestParseCommandLine(t *testing.T) {
	e, ok := parseCommandLine("  waypoint:add AV-001 150,100 ")
	require.True(t, ok)
	assert.Equal(t, ":WAYPOINT:ADD:", e.Command)
	assert.Equal(t, []string{"AV-001", "150,100"}, e.Args)

	_, ok = parseCommandLine("# comment")
	assert.False(t, ok)
	_, ok = parseCommandLine("   ")
	assert.False(t, ok)
}

func TestRunConsole(t *testing.T) {
	r, err := sim.New(engine.New(engine.WithSeed(1), engine.WithMapVariant(core.MapWarehouse)))
	require.NoError(t, err)
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	defer d.Close()
	r.RegisterHandlers(d)

	in := strings.NewReader(":VEHICLE:SELECT: AV-001\n\n:NOPE:\n:SPEED:SET: 2\n")
	var out bytes.Buffer
	require.NoError(t, runConsole(context.Background(), d, in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &reply))
	assert.Equal(t, float64(0), reply["result"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &reply))
	assert.Contains(t, reply["error"], "unknown command")

	assert.Equal(t, 2.0, r.SpeedMultiplier())
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestUploadRecording(t *testing.T) {
	var uploads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/runs/add" {
			uploads.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	uploadRecording(api.New(server.URL, "k"), path, api.UploadMetadata{RunID: "r-1"})
	assert.Equal(t, int32(1), uploads.Load())

	server.Close()
	uploadRecording(api.New(server.URL, "k"), path, api.UploadMetadata{RunID: "r-1"})
	assert.Equal(t, int32(1), uploads.Load(), "unreachable dashboard skips the upload")
}
