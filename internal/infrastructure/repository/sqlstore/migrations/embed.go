// Package migrations embeds the schema migrations of every supported SQL
// dialect, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
