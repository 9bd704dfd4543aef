package migrations

import _ "embed"

// Schema is the idempotent PostgreSQL schema.
//
//go:embed schema.sql
var Schema string
