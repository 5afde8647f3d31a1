// Package schema embeds the goose migrations for the postgres document store so the server,
// the admin CLI and the integration tests all apply the same files.
package schema

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS
