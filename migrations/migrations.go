// Package migrations embeds the relational schema so the integration test
// harness can bootstrap throwaway databases without shelling out to psql.
package migrations

import _ "embed"

//go:embed schema.sql
var Schema string
