package tablesync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
)

// Query narrows down the rows of a collection for display.
type Query struct {
	// Search is matched case-insensitively against every visible column.
	Search   string
	Ordering []core.DBOrdering
}

// Query returns the rows of a collection matching q. Without ordering the primary key
// order of the snapshot is kept.
func (snap *Snapshot) Query(cs schema.CollectionSchema, q Query) []core.Record {
	recs := snap.Records(cs.ID)

	if term := core.SearchTerm(q.Search); term != "" {
		cols := cs.VisibleColumns()
		filtered := recs[:0]
		for _, rec := range recs {
			if matches(rec, cols, term) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}

	if len(q.Ordering) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, ord := range q.Ordering {
				c := compareValues(recs[i][ord.Field], recs[j][ord.Field])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	return recs
}

func matches(rec core.Record, cols []schema.Column, term string) bool {
	for _, col := range cols {
		v, ok := rec[col.Key]
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
			return true
		}
	}
	return false
}

// compareValues orders nil first, then numbers, then everything else as text.
func compareValues(a, b interface{}) int {
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
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}
