package delineation

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// checkDatabase opens the NHDPlus2 database read-only and lists its tables,
// which fails for anything that is not an SQLite file.
func checkDatabase(ctx context.Context, path string) (int, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var tables int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table'").Scan(&tables); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return tables, nil
}
