package tablesync_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/store"
	. "github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/tests"
)

func setup(t *testing.T, seed bool) (*Engine, *testutil.FakeStore) {
	t.Helper()
	st := testutil.NewFakeStore(seed)
	eng := NewEngine(st, core.NopLogger{}, 0)
	_, err := eng.RefreshAll(context.Background())
	require.NoError(t, err)
	return eng, st
}

func TestEngine_RefreshAll(t *testing.T) {
	eng, _ := setup(t, true)

	snap := eng.Snapshot()
	assert.Equal(t, uint64(1), snap.Generation())
	assert.Equal(t, 5, snap.Len(schema.Students))
	assert.Equal(t, 2, snap.Len(schema.Courses))
	assert.Equal(t, 0, snap.Len(schema.Grades))
	for _, id := range schema.IDs() {
		assert.NotNil(t, snap.Records(id), id)
	}

	st := eng.State()
	assert.Equal(t, Idle, st.Status)
	assert.Nil(t, st.LastError)
}

func TestEngine_RefreshAll_partialDegradation(t *testing.T) {
	eng, st := setup(t, true)
	st.FailSelect("grades", &store.QueryError{Table: "grades", Message: "permission denied"})

	snap, err := eng.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len(schema.Grades))
	assert.Equal(t, 5, snap.Len(schema.Students))
	assert.Contains(t, snap.Degraded(), schema.Grades)
	assert.Equal(t, Idle, eng.State().Status)
}

func TestEngine_RefreshAll_fatal(t *testing.T) {
	eng, st := setup(t, true)
	before := eng.Snapshot()
	st.FailSelect("teachers", store.NewConnectionError(io.EOF, "dialing"))

	snap, err := eng.RefreshAll(context.Background())
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.True(t, store.IsConnection(err))

	assert.Same(t, before, eng.Snapshot())
	state := eng.State()
	assert.Equal(t, Error, state.Status)
	require.NotNil(t, state.LastError)
	assert.Contains(t, state.LastError.Message, "store connection failed")

	// retry clears the error
	st.FailSelect("teachers", nil)
	_, err = eng.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, eng.State().Status)
	assert.Nil(t, eng.State().LastError)
}

// slowStore never answers Select on one table before the context is done.
type slowStore struct {
	*testutil.FakeStore
	table string
}

func (s slowStore) Select(ctx context.Context, table string, ordering []core.DBOrdering) ([]core.Record, error) {
	if table == s.table {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.FakeStore.Select(ctx, table, ordering)
}

func TestEngine_RefreshAll_slowCollectionDegrades(t *testing.T) {
	st := slowStore{FakeStore: testutil.NewFakeStore(true), table: "grades"}
	eng := NewEngine(st, core.NopLogger{}, 50*time.Millisecond)

	snap, err := eng.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, snap.Len(schema.Students))
	assert.Equal(t, 0, snap.Len(schema.Grades))
	assert.Contains(t, snap.Degraded(), schema.Grades)

	state := eng.State()
	assert.Equal(t, Idle, state.Status)
	assert.Nil(t, state.LastError)
}

func TestEngine_RefreshAll_callerCanceled(t *testing.T) {
	st := slowStore{FakeStore: testutil.NewFakeStore(true), table: "grades"}
	eng := NewEngine(st, core.NopLogger{}, time.Minute)
	before := eng.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	snap, err := eng.RefreshAll(ctx)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Same(t, before, eng.Snapshot())
	assert.Equal(t, Error, eng.State().Status)
}

func TestEngine_RefreshAll_dropsBadRows(t *testing.T) {
	st := testutil.NewFakeStore(false)
	ctx := context.Background()
	st.DB.Load(map[string][]core.Record{"students": {
		{"id": "10", "name": "Ten"},
		{"id": "2", "name": "Two"},
		{"id": "2", "name": "Two again"},
		{"name": "No key"},
		{"id": "3"}, // no name
		{"id": "1", "name": "One"},
	}})
	eng := NewEngine(st, core.NopLogger{}, 0)

	snap, err := eng.RefreshAll(ctx)
	require.NoError(t, err)

	var names []string
	for _, s := range snap.Students() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"One", "Two", "Ten"}, names)
}

func TestEngine_Create(t *testing.T) {
	eng, st := setup(t, true)
	ctx := context.Background()

	err := eng.Create(ctx, schema.Students, core.Record{
		"reg_no": "2024CS09", "name": "Frank Ocean", "email": "frank@univ.edu",
		"department": "Computer Science", "cgpa": "3.1", "current_semester": float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Calls("insert"))

	snap := eng.Snapshot()
	assert.Equal(t, uint64(2), snap.Generation())
	assert.Equal(t, 6, snap.Len(schema.Students))
	var found bool
	for _, s := range snap.Students() {
		if s.Name == "Frank Ocean" {
			found = true
			assert.Equal(t, 3.1, s.CGPA.Float64)
		}
	}
	assert.True(t, found)

	// natural key: the caller supplies course_code
	err = eng.Create(ctx, schema.Courses, core.Record{
		"course_code": "CS201", "course_name": "Algorithms", "semester": "3", "department": "Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Calls("insert"))

	snap = eng.Snapshot()
	assert.Equal(t, uint64(3), snap.Generation())
	rec, _, ok := snap.Find(schema.Courses, "CS201")
	require.True(t, ok)
	assert.Equal(t, "Algorithms", rec["course_name"])
	assert.Equal(t, float64(3), rec["semester"])
}

func TestEngine_Create_rejected(t *testing.T) {
	eng, st := setup(t, true)
	ctx := context.Background()
	gen := eng.Snapshot().Generation()

	tests := []struct {
		name  string
		coll  schema.CollectionID
		rec   core.Record
		field string
	}{
		{name: "unknown column", coll: schema.Students, rec: core.Record{"name": "X", "nickname": "x"}, field: "nickname"},
		{name: "bad select option", coll: schema.Students, rec: core.Record{"name": "X", "department": "Arts"}, field: "department"},
		{name: "bad number", coll: schema.Students, rec: core.Record{"name": "X", "cgpa": "high"}, field: "cgpa"},
		{name: "missing required", coll: schema.Students, rec: core.Record{"email": "x@univ.edu"}, field: "name"},
		{name: "missing natural key", coll: schema.Courses, rec: core.Record{"course_name": "Optics"}, field: "course_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.Create(ctx, tt.coll, tt.rec)
			var mErr *MutationError
			require.ErrorAs(t, err, &mErr)
			assert.Equal(t, OpCreate, mErr.Op)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldMap(), tt.field)
		})
	}
	assert.Equal(t, 0, st.Calls("insert"))
	assert.Equal(t, gen, eng.Snapshot().Generation())
}

func TestEngine_Create_storeFailure(t *testing.T) {
	eng, st := setup(t, true)
	gen := eng.Snapshot().Generation()
	st.FailWrites(&store.QueryError{Table: "teachers", Code: "23505", Message: "duplicate key"})

	err := eng.Create(context.Background(), schema.Teachers, core.Record{"name": "Dr. Who"})
	var mErr *MutationError
	require.ErrorAs(t, err, &mErr)
	assert.True(t, store.IsQuery(err))
	assert.Equal(t, gen, eng.Snapshot().Generation())
}

func TestEngine_Create_refreshFailureIsNotAMutationError(t *testing.T) {
	eng, st := setup(t, true)
	st.FailSelect("students", store.NewConnectionError(nil, "dialing"))

	err := eng.Create(context.Background(), schema.Teachers, core.Record{"name": "Dr. Who"})
	assert.NoError(t, err)
	assert.Equal(t, Error, eng.State().Status)
}

// cancelingStore cancels the caller's context once a row has been inserted.
type cancelingStore struct {
	*testutil.FakeStore
	cancel context.CancelFunc
}

func (s cancelingStore) Insert(ctx context.Context, table string, rec core.Record) error {
	err := s.FakeStore.Insert(ctx, table, rec)
	s.cancel()
	return err
}

func TestEngine_Create_refreshOutlivesCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := cancelingStore{FakeStore: testutil.NewFakeStore(true), cancel: cancel}
	eng := NewEngine(st, core.NopLogger{}, 0)

	require.NoError(t, eng.Create(ctx, schema.Teachers, core.Record{"name": "Dr. Who"}))
	require.Error(t, ctx.Err())

	state := eng.State()
	assert.Equal(t, Idle, state.Status)
	assert.Nil(t, state.LastError)
	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, 3, eng.Snapshot().Len(schema.Teachers))
}

func TestEngine_Update(t *testing.T) {
	eng, st := setup(t, true)
	ctx := context.Background()

	// partial record: the rest comes from the snapshot
	require.NoError(t, eng.Update(ctx, schema.Students, core.Record{"id": "2", "cgpa": 3.7}))
	stu, ok := eng.Snapshot().Student("2")
	require.True(t, ok)
	assert.Equal(t, 3.7, stu.CGPA.Float64)
	assert.Equal(t, "Bob Johnson", stu.Name)

	// natural key
	require.NoError(t, eng.Update(ctx, schema.Courses, core.Record{"course_code": "EE202", "semester": "3"}))
	rec, _, ok := eng.Snapshot().Find(schema.Courses, "EE202")
	require.True(t, ok)
	assert.Equal(t, float64(3), rec["semester"])

	err := eng.Update(ctx, schema.Students, core.Record{"name": "No key"})
	assert.ErrorIs(t, err, ErrMissingPrimaryKey)

	err = eng.Update(ctx, schema.Students, core.Record{"id": "2", "name": ""})
	assert.True(t, core.IsValidationError(err))

	err = eng.Update(ctx, schema.Students, core.Record{"id": "404", "name": "Ghost"})
	assert.True(t, store.IsNoRows(err))
	assert.Equal(t, 3, st.Calls("update"))
}

func TestEngine_Delete(t *testing.T) {
	eng, _ := setup(t, true)
	ctx := context.Background()

	require.NoError(t, eng.Delete(ctx, schema.Students, "5"))
	_, ok := eng.Snapshot().Student("5")
	assert.False(t, ok)
	assert.Equal(t, 4, eng.Snapshot().Len(schema.Students))

	assert.ErrorIs(t, eng.Delete(ctx, schema.Students, ""), ErrMissingPrimaryKey)
	assert.ErrorIs(t, eng.Delete(ctx, "lockers", "1"), ErrUnknownCollection)
}

func TestSnapshot_Query(t *testing.T) {
	eng, _ := setup(t, true)
	snap := eng.Snapshot()
	cs := schema.MustGet(schema.Students)

	recs := snap.Query(cs, Query{Search: "computer"})
	assert.Len(t, recs, 2)
	recs = snap.Query(cs, Query{Search: "  COMPUTER   Science "})
	assert.Len(t, recs, 2)

	recs = snap.Query(cs, Query{Ordering: []core.DBOrdering{{Field: "cgpa", Ascending: false}}})
	require.Len(t, recs, 5)
	assert.Equal(t, "Charlie Davis", recs[0]["name"])

	recs = snap.Query(cs, Query{Search: "nobody"})
	assert.Empty(t, recs)

	// copies: mutating the result leaves the snapshot alone
	recs = snap.Records(schema.Students)
	recs[0]["name"] = "Mallory"
	stu, _ := snap.Student("1")
	assert.Equal(t, "Alice Smith", stu.Name)
}
