// Package tablesync keeps an in-memory snapshot of every collection consistent with the
// remote store. Every successful mutation is followed by a full refresh.
package tablesync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/store"
)

// overridden in tests
var nowFunc = func() time.Time { return time.Now().UTC() }

// pendingKey stands in for store-assigned keys while validating a new row.
const pendingKey = "pending"

// Status is the state of the last refresh.
type Status int

const (
	Idle Status = iota
	Loading
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ErrorInfo describes the last fatal refresh failure.
type ErrorInfo struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// State is a point-in-time view of the engine.
type State struct {
	Status      Status     `json:"status"`
	LastError   *ErrorInfo `json:"last_error"`
	Generation  uint64     `json:"generation"`
	RefreshedAt time.Time  `json:"refreshed_at"`
}

type Engine struct {
	store        Store
	decoder      *academic.Decoder
	log          core.Logger
	fetchTimeout time.Duration

	mu         sync.RWMutex
	snap       *Snapshot
	generation uint64
	status     Status
	lastErr    *ErrorInfo
}

// NewEngine returns an engine holding an empty snapshot. fetchTimeout bounds every
// single collection fetch (0 means no bound beyond the caller's context).
func NewEngine(st Store, log core.Logger, fetchTimeout time.Duration) *Engine {
	if log == nil {
		log = core.NopLogger{}
	}
	return &Engine{
		store:        st,
		decoder:      academic.NewDecoder(),
		log:          log,
		fetchTimeout: fetchTimeout,
		snap:         NewSnapshot(),
	}
}

// Snapshot returns the current snapshot. It is never nil and never changes once handed out.
func (eng *Engine) Snapshot() *Snapshot {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	return eng.snap
}

func (eng *Engine) State() State {
	eng.mu.RLock()
	defer eng.mu.RUnlock()
	st := State{
		Status:      eng.status,
		Generation:  eng.snap.generation,
		RefreshedAt: eng.snap.refreshedAt,
	}
	if eng.lastErr != nil {
		info := *eng.lastErr
		st.LastError = &info
	}
	return st
}

// Decoder returns the decoder used to validate rows.
func (eng *Engine) Decoder() *academic.Decoder { return eng.decoder }

// RefreshAll fetches every registered collection concurrently and replaces the snapshot.
// A collection that fails on its own is logged and left empty. A connection failure
// aborts the refresh with a *FatalSyncError and leaves the previous snapshot in place.
func (eng *Engine) RefreshAll(ctx context.Context) (*Snapshot, error) {
	eng.setStatus(Loading)

	schemas := schema.All()
	colls := make([]*collection, len(schemas))

	g, gctx := errgroup.WithContext(ctx)
	for i, cs := range schemas {
		i, cs := i, cs
		g.Go(func() error {
			rows, err := eng.fetch(gctx, cs)
			if err != nil {
				if isFatalFetch(gctx, err) {
					return err
				}
				eng.log.Warn("collection fetch failed, showing it empty", "collection", cs.ID, "error", err)
				colls[i] = &collection{index: map[academic.ID]int{}, degraded: err.Error()}
				return nil
			}
			colls[i] = loadCollection(cs, rows, eng.decoder, eng.log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fErr := &FatalSyncError{Err: err}
		eng.fail(fErr)
		eng.log.Error("refresh failed", "error", err)
		return nil, fErr
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	eng.generation++
	snap := &Snapshot{
		generation:  eng.generation,
		refreshedAt: nowFunc(),
		collections: make(map[schema.CollectionID]*collection, len(schemas)),
	}
	for i, cs := range schemas {
		snap.collections[cs.ID] = colls[i]
	}
	eng.snap = snap
	eng.status = Idle
	eng.lastErr = nil
	return snap, nil
}

func (eng *Engine) fetch(ctx context.Context, cs schema.CollectionSchema) ([]core.Record, error) {
	if eng.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.fetchTimeout)
		defer cancel()
	}
	ordering := []core.DBOrdering{{Field: cs.PrimaryKey, Ascending: true}}
	rows, err := eng.store.Select(ctx, cs.ID.String(), ordering)
	if err != nil {
		return nil, &CollectionFetchError{Collection: cs.ID, Err: err}
	}
	return rows, nil
}

// isFatalFetch tells batch failures apart from errors scoped to one collection. A fetch
// that only ran out of its own fetchTimeout degrades that collection; cancellation is
// fatal when the batch context itself is done.
func isFatalFetch(batch context.Context, err error) bool {
	return store.IsConnection(err) || batch.Err() != nil
}

func (eng *Engine) setStatus(s Status) {
	eng.mu.Lock()
	eng.status = s
	eng.mu.Unlock()
}

func (eng *Engine) fail(err error) {
	eng.mu.Lock()
	eng.status = Error
	eng.lastErr = &ErrorInfo{Message: err.Error(), At: nowFunc()}
	eng.mu.Unlock()
}

// Create validates rec against the collection, inserts it and refreshes.
func (eng *Engine) Create(ctx context.Context, id schema.CollectionID, rec core.Record) error {
	cs, ok := schema.Get(id)
	if !ok {
		return &MutationError{Op: OpCreate, Collection: id, Err: ErrUnknownCollection}
	}

	norm, err := cs.Normalize(rec)
	if err != nil {
		return &MutationError{Op: OpCreate, Collection: id, Err: err}
	}
	probe := norm.Clone()
	if _, ok := cs.PrimaryKeyValue(probe); !ok && cs.HasSurrogateKey() {
		delete(norm, cs.PrimaryKey)
		probe[cs.PrimaryKey] = pendingKey
	}
	if _, err := eng.decoder.Decode(id, probe); err != nil {
		return &MutationError{Op: OpCreate, Collection: id, Err: err}
	}

	if err := eng.store.Insert(ctx, id.String(), norm); err != nil {
		return &MutationError{Op: OpCreate, Collection: id, Err: errors.Wrap(err, "inserting record")}
	}
	eng.refreshAfterWrite(ctx, OpCreate, id)
	return nil
}

// Update writes the fields of rec on the row identified by rec's own primary key, then
// refreshes. rec is merged over the current row for validation, so partial records are fine.
func (eng *Engine) Update(ctx context.Context, id schema.CollectionID, rec core.Record) error {
	cs, ok := schema.Get(id)
	if !ok {
		return &MutationError{Op: OpUpdate, Collection: id, Err: ErrUnknownCollection}
	}

	pk, ok := cs.PrimaryKeyValue(rec)
	if !ok {
		return &MutationError{Op: OpUpdate, Collection: id, Err: ErrMissingPrimaryKey}
	}
	norm, err := cs.Normalize(rec)
	if err != nil {
		return &MutationError{Op: OpUpdate, Collection: id, Err: err}
	}
	if pk, ok = cs.PrimaryKeyValue(norm); !ok {
		return &MutationError{Op: OpUpdate, Collection: id, Err: ErrMissingPrimaryKey}
	}

	merged := norm
	if current, _, found := eng.Snapshot().Find(id, academic.KeyOf(pk)); found {
		merged = current.Merge(norm)
	}
	if _, err := eng.decoder.Decode(id, merged); err != nil {
		return &MutationError{Op: OpUpdate, Collection: id, Err: err}
	}

	fields := norm.Clone()
	delete(fields, cs.PrimaryKey)
	if len(fields) == 0 {
		return &MutationError{Op: OpUpdate, Collection: id, Err: core.NewValidationError(ErrNothingToUpdate)}
	}

	if err := eng.store.Update(ctx, id.String(), cs.PrimaryKey, pk, fields); err != nil {
		return &MutationError{Op: OpUpdate, Collection: id, Err: errors.Wrap(err, "updating record")}
	}
	eng.refreshAfterWrite(ctx, OpUpdate, id)
	return nil
}

// Delete removes the row whose primary key equals pk, then refreshes.
// Callers are expected to have confirmed the deletion.
func (eng *Engine) Delete(ctx context.Context, id schema.CollectionID, pk interface{}) error {
	cs, ok := schema.Get(id)
	if !ok {
		return &MutationError{Op: OpDelete, Collection: id, Err: ErrUnknownCollection}
	}
	if academic.KeyOf(pk) == "" {
		return &MutationError{Op: OpDelete, Collection: id, Err: ErrMissingPrimaryKey}
	}

	if err := eng.store.Delete(ctx, id.String(), cs.PrimaryKey, pk); err != nil {
		return &MutationError{Op: OpDelete, Collection: id, Err: errors.Wrap(err, "deleting record")}
	}
	eng.refreshAfterWrite(ctx, OpDelete, id)
	return nil
}

// refreshAfterWrite never fails the mutation: a failed refresh shows up in State.
// The write already happened, so the refresh outlives the caller's cancellation.
func (eng *Engine) refreshAfterWrite(ctx context.Context, op Op, id schema.CollectionID) {
	if _, err := eng.RefreshAll(context.WithoutCancel(ctx)); err != nil {
		eng.log.Warn("refresh after write failed", "op", op, "collection", id, "error", err)
	}
}
