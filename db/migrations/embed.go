// Package migrations ships the goose SQL migrations inside the binary.
package migrations

import (
	"embed"
	"fmt"
	"path"
)

// FS holds one migration directory per goose dialect under sql/.
//
//go:embed sql
var FS embed.FS

var dirs = map[string]string{
	"postgres": "postgres",
	"mysql":    "mysql",
	"sqlite3":  "sqlite",
}

// Dir returns the migration directory inside FS for a goose dialect.
func Dir(dialect string) (string, error) {
	dir, ok := dirs[dialect]
	if !ok {
		return "", fmt.Errorf("no migrations for dialect %s", dialect)
	}
	return path.Join("sql", dir), nil
}
