// Package migrations embeds the SQL schema applied at startup.
package migrations

import "embed"

// FS holds the *.sql scripts, applied in lexical order
//
//go:embed *.sql
var FS embed.FS
