package inmemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/store"
	"github.com/trezcool/eduadmin/core/tablesync"
)

// idField is filled with a uuid on insert when missing.
const idField = "id"

type Store struct {
	db *DB
}

var _ tablesync.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) table(name string) (*table, error) {
	tbl, ok := s.db.tables[name]
	if !ok {
		return nil, &store.QueryError{Table: name, Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", name)}
	}
	return tbl, nil
}

func (s *Store) Select(ctx context.Context, name string, ordering []core.DBOrdering) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl, err := s.table(name)
	if err != nil {
		return nil, err
	}

	tbl.RLock()
	rows := make([]core.Record, len(tbl.rows))
	for i, row := range tbl.rows {
		rows[i] = jsonCopy(row)
	}
	tbl.RUnlock()

	if len(ordering) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, ord := range ordering {
				c := compare(rows[i][ord.Field], rows[j][ord.Field])
				if c == 0 {
					continue
				}
				return (c < 0) == ord.Ascending
			}
			return false
		})
	}
	return rows, nil
}

func (s *Store) Insert(ctx context.Context, name string, rec core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl, err := s.table(name)
	if err != nil {
		return err
	}

	row := jsonCopy(rec)
	if v, ok := row[idField]; !ok || v == nil || v == "" {
		row[idField] = uuid.New().String()
	}

	tbl.Lock()
	defer tbl.Unlock()
	for _, existing := range tbl.rows {
		if sameKey(existing[idField], row[idField]) {
			return &store.QueryError{Table: name, Code: "23505", Message: fmt.Sprintf("duplicate key value %v", row[idField])}
		}
	}
	tbl.rows = append(tbl.rows, row)
	return nil
}

func (s *Store) Update(ctx context.Context, name, pkField string, pkValue interface{}, rec core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl, err := s.table(name)
	if err != nil {
		return err
	}
	fields := jsonCopy(rec)

	tbl.Lock()
	defer tbl.Unlock()
	var matched bool
	for i, row := range tbl.rows {
		if sameKey(row[pkField], pkValue) {
			tbl.rows[i] = row.Merge(fields)
			matched = true
		}
	}
	if !matched {
		return errors.Wrapf(store.ErrNoRows, "%s where %s = %v", name, pkField, pkValue)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name, pkField string, pkValue interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl, err := s.table(name)
	if err != nil {
		return err
	}

	tbl.Lock()
	defer tbl.Unlock()
	kept := tbl.rows[:0]
	for _, row := range tbl.rows {
		if !sameKey(row[pkField], pkValue) {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(tbl.rows) {
		return errors.Wrapf(store.ErrNoRows, "%s where %s = %v", name, pkField, pkValue)
	}
	for i := len(kept); i < len(tbl.rows); i++ {
		tbl.rows[i] = nil
	}
	tbl.rows = kept
	return nil
}

// jsonCopy deep copies a record, turning every value into its JSON form.
func jsonCopy(rec core.Record) core.Record {
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec.Clone()
	}
	var out core.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return rec.Clone()
	}
	if out == nil {
		out = core.Record{}
	}
	return out
}

func sameKey(a, b interface{}) bool {
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
