package tablesync

import (
	"sort"
	"strconv"
	"time"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/schema"
)

type collection struct {
	rows     []core.Record
	entities []academic.Entity
	index    map[academic.ID]int
	degraded string // fetch error message, if the collection could not be loaded
}

// Snapshot is an immutable view of every collection at one point in time.
// Accessors hand out copies.
type Snapshot struct {
	generation  uint64
	refreshedAt time.Time
	collections map[schema.CollectionID]*collection
}

// NewSnapshot returns a snapshot holding one empty sequence per registered collection.
func NewSnapshot() *Snapshot {
	snap := &Snapshot{collections: make(map[schema.CollectionID]*collection)}
	for _, id := range schema.IDs() {
		snap.collections[id] = &collection{index: map[academic.ID]int{}}
	}
	return snap
}

// SnapshotFrom builds a snapshot out of raw rows, the way a refresh would.
// Rows that do not decode are dropped.
func SnapshotFrom(rows map[schema.CollectionID][]core.Record) *Snapshot {
	snap := NewSnapshot()
	dec := academic.NewDecoder()
	for id, recs := range rows {
		cs, ok := schema.Get(id)
		if !ok {
			continue
		}
		snap.collections[id] = loadCollection(cs, recs, dec, core.NopLogger{})
	}
	return snap
}

func (snap *Snapshot) Generation() uint64     { return snap.generation }
func (snap *Snapshot) RefreshedAt() time.Time { return snap.refreshedAt }

// Len returns the number of rows of a collection.
func (snap *Snapshot) Len(id schema.CollectionID) int {
	if coll, ok := snap.collections[id]; ok {
		return len(coll.rows)
	}
	return 0
}

// Counts returns the number of rows of every collection.
func (snap *Snapshot) Counts() map[schema.CollectionID]int {
	counts := make(map[schema.CollectionID]int, len(snap.collections))
	for id, coll := range snap.collections {
		counts[id] = len(coll.rows)
	}
	return counts
}

// Degraded returns the collections that could not be fetched, with the reason.
func (snap *Snapshot) Degraded() map[schema.CollectionID]string {
	degraded := make(map[schema.CollectionID]string)
	for id, coll := range snap.collections {
		if coll.degraded != "" {
			degraded[id] = coll.degraded
		}
	}
	return degraded
}

// Records returns a copy of the rows of a collection, sorted by primary key.
func (snap *Snapshot) Records(id schema.CollectionID) []core.Record {
	coll, ok := snap.collections[id]
	if !ok {
		return nil
	}
	recs := make([]core.Record, len(coll.rows))
	for i, rec := range coll.rows {
		recs[i] = rec.Clone()
	}
	return recs
}

// Entities returns the decoded rows of a collection, sorted by primary key.
func (snap *Snapshot) Entities(id schema.CollectionID) []academic.Entity {
	coll, ok := snap.collections[id]
	if !ok {
		return nil
	}
	return append([]academic.Entity(nil), coll.entities...)
}

// Find returns the row with the given primary key.
func (snap *Snapshot) Find(id schema.CollectionID, pk academic.ID) (core.Record, academic.Entity, bool) {
	coll, ok := snap.collections[id]
	if !ok {
		return nil, nil, false
	}
	i, ok := coll.index[pk]
	if !ok {
		return nil, nil, false
	}
	return coll.rows[i].Clone(), coll.entities[i], true
}

func (snap *Snapshot) Students() []academic.Student {
	ents := snap.Entities(schema.Students)
	students := make([]academic.Student, 0, len(ents))
	for _, e := range ents {
		students = append(students, e.(academic.Student))
	}
	return students
}

func (snap *Snapshot) Student(id academic.ID) (academic.Student, bool) {
	_, e, ok := snap.Find(schema.Students, id)
	if !ok {
		return academic.Student{}, false
	}
	return e.(academic.Student), true
}

func (snap *Snapshot) Attendance() []academic.AttendanceRecord {
	ents := snap.Entities(schema.Attendance)
	recs := make([]academic.AttendanceRecord, 0, len(ents))
	for _, e := range ents {
		recs = append(recs, e.(academic.AttendanceRecord))
	}
	return recs
}

func (snap *Snapshot) Grades() []academic.Grade {
	ents := snap.Entities(schema.Grades)
	grades := make([]academic.Grade, 0, len(ents))
	for _, e := range ents {
		grades = append(grades, e.(academic.Grade))
	}
	return grades
}

func (snap *Snapshot) Predictions() []academic.Prediction {
	ents := snap.Entities(schema.MLPredictions)
	preds := make([]academic.Prediction, 0, len(ents))
	for _, e := range ents {
		preds = append(preds, e.(academic.Prediction))
	}
	return preds
}

// loadCollection decodes the fetched rows of a collection. Malformed rows, rows without a
// primary key and duplicate primary keys are dropped with a warning. Rows end up sorted by
// primary key ascending.
func loadCollection(cs schema.CollectionSchema, rows []core.Record, dec *academic.Decoder, log core.Logger) *collection {
	type row struct {
		rec    core.Record
		entity academic.Entity
		key    academic.ID
	}

	kept := make([]row, 0, len(rows))
	seen := make(map[academic.ID]bool, len(rows))
	for i, rec := range rows {
		pk, ok := cs.PrimaryKeyValue(rec)
		if !ok {
			log.Warn("dropping row without primary key", "collection", cs.ID, "position", i)
			continue
		}
		key := academic.KeyOf(pk)
		if seen[key] {
			log.Warn("dropping duplicate row", "collection", cs.ID, "pk", key)
			continue
		}
		entity, err := dec.Decode(cs.ID, rec)
		if err != nil {
			log.Warn("dropping malformed row", "collection", cs.ID, "pk", key, "error", err)
			continue
		}
		seen[key] = true
		kept = append(kept, row{rec: rec.Clone(), entity: entity, key: key})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return lessKey(kept[i].key, kept[j].key)
	})

	coll := &collection{
		rows:     make([]core.Record, len(kept)),
		entities: make([]academic.Entity, len(kept)),
		index:    make(map[academic.ID]int, len(kept)),
	}
	for i, r := range kept {
		coll.rows[i] = r.rec
		coll.entities[i] = r.entity
		coll.index[r.key] = i
	}
	return coll
}

// lessKey orders numeric keys numerically and everything else lexically.
// Numeric keys sort before the others.
func lessKey(a, b academic.ID) bool {
	fa, errA := strconv.ParseFloat(string(a), 64)
	fb, errB := strconv.ParseFloat(string(b), 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
