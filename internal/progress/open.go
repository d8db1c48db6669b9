package progress

import (
	"context"
	"fmt"

	"github.com/MrWong99/chronos/internal/config"
)

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.ProgressConfig) (Backend, error) {
	switch cfg.Backend {
	case config.ProgressMemory, "":
		return NewMemoryBackend(), nil
	case config.ProgressFile:
		return NewFileBackend(cfg.Path)
	case config.ProgressSQLite:
		return NewSQLiteBackend(ctx, cfg.Path)
	case config.ProgressPostgres:
		return NewPostgresBackend(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("progress: unknown backend %q", cfg.Backend)
	}
}
