package keyspace

import (
	"context"
	"fmt"

	"apply-desk/internal/common/config"
	"apply-desk/internal/common/database"
)

// Open builds the backend selected by database.local.backend.
func Open(ctx context.Context, cfg config.DatabaseConfig) (KeySpace, error) {
	switch cfg.Local.Backend {
	case config.LocalBackendRedis:
		rc := database.NewRedis(cfg.Redis)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, err
		}
		return NewRedis(rc.GetClient(), cfg.Local.KeyPrefix), nil
	case config.LocalBackendSQLite, "":
		return NewSQLite(ctx, cfg.Local.Path)
	default:
		return nil, fmt.Errorf("keyspace: unknown backend %q", cfg.Local.Backend)
	}
}
