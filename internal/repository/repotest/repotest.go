// Package repotest opens throwaway sqlite databases for repository tests.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/Additional-Code/procura/internal/database"
)

// Open returns an in-memory database private to t with tables for models.
func Open(t *testing.T, models ...any) *bun.DB {
	t.Helper()
	return open(t, dbName(t), models)
}

// Replica returns a second database private to t with empty tables for
// models. Pairing it with Open as the reader models a replica that has not
// caught up with the writer.
func Replica(t *testing.T, models ...any) *bun.DB {
	t.Helper()
	return open(t, dbName(t)+"_replica", models)
}

// Connections wraps db as both writer and reader.
func Connections(db *bun.DB) *database.Connections {
	return &database.Connections{Writer: db, Reader: db}
}

// Split uses writer and reader as distinct pools.
func Split(writer, reader *bun.DB) *database.Connections {
	return &database.Connections{Writer: writer, Reader: reader}
}

func open(t *testing.T, name string, models []any) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, m := range models {
		_, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}
	return db
}

func dbName(t *testing.T) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
}
