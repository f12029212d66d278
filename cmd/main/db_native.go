//go:build !cgo_sqlite

package main

import (
	_ "modernc.org/sqlite"
)

const (
	sqliteDriver  = "sqlite"
	sqliteOptions = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)
