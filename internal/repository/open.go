package repository

import (
	"context"
	"fmt"

	"github.com/valueminer/valueminer/internal/config"
)

// Open returns the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.Store.Path)
	case config.StoreSupabase:
		return NewSupabaseStore(cfg.Supabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
