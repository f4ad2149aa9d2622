package main

import (
	"context"
	"path/filepath"

	"screepsres/internal/config"
	"screepsres/internal/persistence/indexdb"
)

type renderIndex interface {
	RecordRender(r indexdb.RenderRow)
	List(ctx context.Context, limit int) ([]indexdb.RenderRow, error)
	Dropped() uint64
	Close() error
}

// openRenderIndex returns nil when the index is disabled.
func openRenderIndex(cfg config.Config) (renderIndex, error) {
	switch cfg.Index.Backend {
	case "none":
		return nil, nil
	default:
		return indexdb.OpenSQLite(renderIndexPath(cfg.Server.DataDir))
	}
}

func renderIndexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "renders.sqlite")
}
