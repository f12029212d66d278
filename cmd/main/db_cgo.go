//go:build cgo_sqlite

package main

import (
	_ "github.com/mattn/go-sqlite3"
)

// The cgo driver takes its pragmas as plain DSN parameters.
const (
	sqliteDriver  = "sqlite3"
	sqliteOptions = "?_journal_mode=WAL&_busy_timeout=5000"
)
