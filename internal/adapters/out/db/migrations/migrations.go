// internal/adapters/out/db/migrations/migrations.go
package migrations

import "embed"

// Migrations は goose 用の埋め込み SQL です。
//
//go:embed *.sql
var Migrations embed.FS
