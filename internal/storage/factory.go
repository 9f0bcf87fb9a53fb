package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/internal/storage/db"
	"github.com/hmdlab/headtrack/internal/storage/memory"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "db":
		return db.New(db.Config{
			FlushInterval: cfg.DB.FlushInterval,
			SqlitePath:    cfg.DB.SqlitePath,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
