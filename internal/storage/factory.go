// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/luxreplay/internal/config"
	gormstorage "github.com/OCAP2/luxreplay/internal/storage/gorm"
	"github.com/OCAP2/luxreplay/internal/storage/memory"
	sqlitestorage "github.com/OCAP2/luxreplay/internal/storage/sqlite"
	"github.com/OCAP2/luxreplay/internal/storage/websocket"
	"gorm.io/gorm"
)

// Compile-time interface checks
var (
	_ Backend     = (*memory.Backend)(nil)
	_ Uploadable  = (*memory.Backend)(nil)
	_ Backend     = (*gormstorage.Backend)(nil)
	_ FrameLoader = (*gormstorage.Backend)(nil)
	_ Backend     = (*sqlitestorage.Backend)(nil)
	_ FrameLoader = (*sqlitestorage.Backend)(nil)
	_ Backend     = (*websocket.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration. db is only
// used by the postgres backend; a nil db makes it open its own connection.
func NewBackend(cfg config.StorageConfig, db *gorm.DB, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "postgres":
		return gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}), nil
	case "sqlite":
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.DumpPath,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
