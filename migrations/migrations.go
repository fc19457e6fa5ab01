// Package migrations embeds the SQL schema migrations for every supported driver.
package migrations

import "embed"

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
