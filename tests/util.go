// Package testutil holds the fakes and fixtures shared by the test suites.
package testutil

import (
	"context"
	"sync"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/storage/database/inmem"
)

// FakeStore is an in-memory store whose calls can be made to fail and are counted.
type FakeStore struct {
	*inmemdb.Store
	DB *inmemdb.DB

	mu        sync.Mutex
	failAll   error
	failTable map[string]error
	failWrite error
	calls     map[string]int
}

var _ tablesync.Store = (*FakeStore)(nil)

// NewFakeStore returns a store holding every registered collection, seeded when seed is true.
func NewFakeStore(seed bool) *FakeStore {
	db := inmemdb.Open(inmemdb.Tables()...)
	if seed {
		db.Load(inmemdb.SeedData())
	}
	return &FakeStore{
		Store:     inmemdb.NewStore(db),
		DB:        db,
		failTable: make(map[string]error),
		calls:     make(map[string]int),
	}
}

// FailAll makes every call fail with err (nil resets).
func (fs *FakeStore) FailAll(err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failAll = err
}

// FailSelect makes Select on table fail with err (nil resets).
func (fs *FakeStore) FailSelect(table string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err == nil {
		delete(fs.failTable, table)
		return
	}
	fs.failTable[table] = err
}

// FailWrites makes Insert, Update and Delete fail with err (nil resets).
func (fs *FakeStore) FailWrites(err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failWrite = err
}

// Calls returns how many times op ("select", "insert", "update", "delete") was called.
func (fs *FakeStore) Calls(op string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls[op]
}

func (fs *FakeStore) enter(op, table string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls[op]++
	if fs.failAll != nil {
		return fs.failAll
	}
	if op == "select" {
		return fs.failTable[table]
	}
	return fs.failWrite
}

func (fs *FakeStore) Select(ctx context.Context, table string, ordering []core.DBOrdering) ([]core.Record, error) {
	if err := fs.enter("select", table); err != nil {
		return nil, err
	}
	return fs.Store.Select(ctx, table, ordering)
}

func (fs *FakeStore) Insert(ctx context.Context, table string, rec core.Record) error {
	if err := fs.enter("insert", table); err != nil {
		return err
	}
	return fs.Store.Insert(ctx, table, rec)
}

func (fs *FakeStore) Update(ctx context.Context, table, pkField string, pkValue interface{}, rec core.Record) error {
	if err := fs.enter("update", table); err != nil {
		return err
	}
	return fs.Store.Update(ctx, table, pkField, pkValue, rec)
}

func (fs *FakeStore) Delete(ctx context.Context, table, pkField string, pkValue interface{}) error {
	if err := fs.enter("delete", table); err != nil {
		return err
	}
	return fs.Store.Delete(ctx, table, pkField, pkValue)
}
