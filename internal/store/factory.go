package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/agrorain/internal/rainfall"
)

// MemoryPath selects the in-memory KV for the local backend.
const MemoryPath = ":memory:"

// Config drives backend selection.
type Config struct {
	Remote RemoteConfig
	// RemoteInitTimeout bounds connecting to and pinging the remote backend.
	RemoteInitTimeout time.Duration
	// LocalPath is the SQLite file for the local backend, or MemoryPath.
	LocalPath string
}

// Selection is the outcome of Open.
type Selection struct {
	Store rainfall.Store
	// OfflineReason explains why the local backend was chosen. Empty when
	// the remote backend is active.
	OfflineReason string
}

// remoteOpener is swapped in tests.
type remoteOpener func(ctx context.Context, cfg RemoteConfig, logger *slog.Logger) (rainfall.Store, error)

func openFirestore(ctx context.Context, cfg RemoteConfig, logger *slog.Logger) (rainfall.Store, error) {
	return NewRemoteStore(ctx, cfg, logger)
}

// Open picks the backend for the whole session. A configured remote
// backend that cannot be reached within RemoteInitTimeout causes a one-time
// fallback to the local backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Selection, error) {
	return open(ctx, cfg, logger, openFirestore)
}

func open(ctx context.Context, cfg Config, logger *slog.Logger, openRemote remoteOpener) (Selection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reason := "remote backend not configured; data is stored locally"
	if cfg.Remote.ProjectID != "" {
		remote, err := connectRemote(ctx, cfg, logger, openRemote)
		if err == nil {
			logger.Info("using remote backend", "project", cfg.Remote.ProjectID)
			return Selection{Store: remote}, nil
		}
		logger.Warn("remote backend unavailable at startup; falling back to local storage", "error", err)
		reason = fmt.Sprintf("remote backend unavailable at startup (%v); data is stored locally", err)
	}

	local, err := openLocal(ctx, cfg.LocalPath, logger)
	if err != nil {
		return Selection{}, err
	}
	logger.Info("using local backend", "path", cfg.LocalPath)
	return Selection{Store: local, OfflineReason: reason}, nil
}

func connectRemote(ctx context.Context, cfg Config, logger *slog.Logger, openRemote remoteOpener) (rainfall.Store, error) {
	timeout := cfg.RemoteInitTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	remote, err := openRemote(initCtx, cfg.Remote, logger)
	if err != nil {
		return nil, err
	}
	if err := remote.Ping(initCtx); err != nil {
		if cerr := remote.Close(); cerr != nil {
			logger.Warn("closing remote backend failed", "error", cerr)
		}
		return nil, fmt.Errorf("ping: %w", err)
	}
	return remote, nil
}

func openLocal(ctx context.Context, path string, logger *slog.Logger) (*LocalStore, error) {
	var kv KV
	if path == "" || path == MemoryPath {
		kv = NewMemoryKV()
	} else {
		sqliteKV, err := NewSQLiteKV(path)
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		kv = sqliteKV
	}

	local, err := NewLocalStore(ctx, kv, logger)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return local, nil
}
