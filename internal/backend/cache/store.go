package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one cached answer.
type Entry struct {
	Answer      string    `msgpack:"answer"`
	Tool        string    `msgpack:"tool"`
	File        string    `msgpack:"file"`
	Description string    `msgpack:"description"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// Store persists cache entries by key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	PutAll(ctx context.Context, entries map[string]Entry) error
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Store formats.
const (
	FormatMsgpack = "msgpack"
	FormatSQLite  = "sqlite"
)

// Open opens the store at path. An empty format is inferred from the
// extension: .db, .sqlite and .sqlite3 select SQLite, anything else msgpack.
func Open(path, format string) (Store, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			format = FormatSQLite
		default:
			format = FormatMsgpack
		}
	}
	switch format {
	case FormatMsgpack:
		return OpenFileStore(path)
	case FormatSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown cache format %q", format)
	}
}
