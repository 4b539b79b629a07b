// Package db ships the SQL migrations applied by cmd/migrator.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
