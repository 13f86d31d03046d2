package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avnav/fleetsim/internal/config"
	"github.com/avnav/fleetsim/internal/logging"
	"github.com/avnav/fleetsim/internal/storage"
	gormstorage "github.com/avnav/fleetsim/internal/storage/gorm"
	"github.com/avnav/fleetsim/internal/storage/memory"
	sqlitestorage "github.com/avnav/fleetsim/internal/storage/sqlite"
	wsstorage "github.com/avnav/fleetsim/internal/storage/websocket"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// storageDeps is what createStorageBackend needs from main.
type storageDeps struct {
	LogManager *logging.SlogManager
	DBLogger   zerolog.Logger
	DBConfig   config.DBConfig
	OutputDir  string // sqlite dump location
}

func initStorage(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	Logger.Debug("Initializing storage", "type", storageCfg.Type)

	backend, err := createStorageBackend(storageCfg, deps)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return gormstorage.New(gormstorage.Dependencies{
			DBConfig:   deps.DBConfig,
			DBLogger:   deps.DBLogger,
			LogManager: deps.LogManager,
		}), nil

	case "sqlite":
		sqliteDBFilePath := filepath.Join(deps.OutputDir, fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     sqliteDBFilePath,
		}, deps.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "path", sqliteDBFilePath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(storageCfg.WebSocket.URL)
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: storageCfg.WebSocket.Secret,
		}, Logger), nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// dbOf returns the gorm connection of SQL backends.
func dbOf(b storage.Backend) *gorm.DB {
	if d, ok := b.(interface{ DB() *gorm.DB }); ok {
		return d.DB()
	}
	return nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
