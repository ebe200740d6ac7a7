// Package migrations embeds the SQL migration files for both supported
// backends, grounded on the teacher's embedded migrations.FS split into
// "sqlite" and "postgres" sub-filesystems selected via fs.Sub.
package migrations

import "embed"

//go:embed sqlite postgres
var FS embed.FS
