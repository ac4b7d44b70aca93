// Package db embeds the SQL schema.
package db

import _ "embed"

// Schema holds idempotent DDL for every table, safe to apply on each start.
//
//go:embed migrations/001_schema.sql
var Schema string
