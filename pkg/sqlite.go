package pkg

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/flashdeck/flashdeck-cli/internal/config"
)

// OpenSQLite opens (creating if needed) the client state database under the
// configured data dir.
func OpenSQLite(cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(cfg.DataDir, "state.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("state database connection failed: %w", err)
	}

	return db, nil
}
