// Package migrations embeds the SQL schema files applied at startup.
package migrations

import "embed"

// Files holds every *.sql migration, applied in file name order.
//
//go:embed *.sql
var Files embed.FS
