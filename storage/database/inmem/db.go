// Package inmemdb is an in-process implementation of the remote store, used for local
// development and tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/eduadmin/core"
)

type (
	DB struct {
		tables map[string]*table
	}

	table struct {
		sync.RWMutex
		rows []core.Record
	}
)

// Open returns a database with one empty table per name.
func Open(tables ...string) *DB {
	db := &DB{tables: make(map[string]*table, len(tables))}
	for _, name := range tables {
		db.tables[name] = &table{}
	}
	return db
}

// Load appends rows to the tables, creating the tables that do not exist yet.
// It must not run concurrently with other calls.
func (db *DB) Load(data map[string][]core.Record) {
	for name, rows := range data {
		tbl, ok := db.tables[name]
		if !ok {
			tbl = &table{}
			db.tables[name] = tbl
		}
		tbl.Lock()
		for _, row := range rows {
			tbl.rows = append(tbl.rows, jsonCopy(row))
		}
		tbl.Unlock()
	}
}
