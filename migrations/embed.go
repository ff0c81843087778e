// Package migrations embeds the versioned SQL schema applied by the CLI.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
