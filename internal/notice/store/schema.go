package store

import _ "embed"

// Schema is the DDL for the notice tables, applied by the integration test
// harness and available to deployment tooling.
//
//go:embed schema.sql
var Schema string
