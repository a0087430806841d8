// Package store elige e instancia el driver de persistencia de keys.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/keywarden/internal/store/core"
	"github.com/dropDatabas3/keywarden/internal/store/fs"
	"github.com/dropDatabas3/keywarden/internal/store/pg"
)

type Config struct {
	Driver   string // fs | postgres
	Path     string // driver fs: ruta al archivo JSON
	DSN      string // driver postgres
	Postgres pg.Config
}

// Stores agrupa el KeyStore abierto y su cierre.
type Stores struct {
	Keys  core.KeyStore
	Close func()
}

// Open instancia el driver configurado. fs es el default: un archivo JSON
// con escritura atómica, suficiente para un único dueño lógico del archivo.
func Open(ctx context.Context, cfg Config) (*Stores, error) {
	switch d := strings.ToLower(cfg.Driver); d {
	case "", "fs", "file", "json":
		s, err := fs.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Stores{Keys: s, Close: func() {}}, nil
	case "postgres", "pg", "postgresql":
		s, err := pg.New(ctx, cfg.DSN, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return &Stores{Keys: s, Close: s.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
