package tablesync

import (
	"context"

	"github.com/trezcool/eduadmin/core"
)

// Store is the remote relational store the engine keeps the snapshot in sync with.
// Tables are named after the collection ids.
//
// Implementations report a failure of a single call as *store.QueryError and a transport
// failure (store unreachable) as an error wrapping store.ErrConnection.
type Store interface {
	// Select returns every row of the table, sorted as requested.
	Select(ctx context.Context, table string, ordering []core.DBOrdering) ([]core.Record, error)
	Insert(ctx context.Context, table string, rec core.Record) error
	// Update sets the fields of rec on the row whose pkField equals pkValue.
	Update(ctx context.Context, table, pkField string, pkValue interface{}, rec core.Record) error
	Delete(ctx context.Context, table, pkField string, pkValue interface{}) error
}
