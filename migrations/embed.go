// Package migrations embeds the Relay SQL migration files so the runner
// works regardless of the process working directory.
package migrations

import "embed"

// FS contains every .sql file in this directory (e.g. 001_initial.sql).
//
//go:embed *.sql
var FS embed.FS
