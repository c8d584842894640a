// Package migrations embeds the SQL migration files for both storage
// backends. Each backend reads its own dialect subdirectory.
package migrations

import "embed"

// FS embeds all SQL migration files, keyed by dialect subdirectory.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
