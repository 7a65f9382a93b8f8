// Package migrations embeds the journal's SQL migration files into the
// binary, so the database can be migrated without the files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory, at the root of the
// filesystem. Pass it as database.Config.Migrations.
//
//go:embed *.sql
var FS embed.FS
