// Package migrations embeds the SQL migrations so binaries and tests apply
// them regardless of the working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
