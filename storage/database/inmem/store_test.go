package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/store"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	st := NewStore(OpenSeeded())

	t.Run("select ordered", func(t *testing.T) {
		rows, err := st.Select(ctx, "students", []core.DBOrdering{{Field: "cgpa", Ascending: false}})
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, "Charlie Davis", rows[0]["name"])
		assert.Equal(t, "Diana Prince", rows[4]["name"])
		assert.Equal(t, float64(2), rows[0]["current_semester"])
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := st.Select(ctx, "lockers", nil)
		assert.True(t, store.IsQuery(err))
	})

	t.Run("insert assigns an id", func(t *testing.T) {
		require.NoError(t, st.Insert(ctx, "grades", core.Record{"student_id": "1", "grade": "A"}))
		rows, err := st.Select(ctx, "grades", nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.NotEmpty(t, rows[0]["id"])
	})

	t.Run("insert duplicate id", func(t *testing.T) {
		err := st.Insert(ctx, "teachers", core.Record{"id": "t1", "name": "Dup"})
		assert.True(t, store.IsQuery(err))
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, st.Update(ctx, "courses", "course_code", "CS101", core.Record{"course_name": "Programming I"}))
		rows, err := st.Select(ctx, "courses", []core.DBOrdering{{Field: "course_code", Ascending: true}})
		require.NoError(t, err)
		assert.Equal(t, "Programming I", rows[0]["course_name"])
		assert.Equal(t, "Basic C++", rows[0]["description"])
	})

	t.Run("update no rows", func(t *testing.T) {
		err := st.Update(ctx, "students", "id", "404", core.Record{"name": "Ghost"})
		assert.True(t, store.IsNoRows(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, st.Delete(ctx, "students", "id", float64(5)))
		rows, err := st.Select(ctx, "students", nil)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
		assert.True(t, store.IsNoRows(st.Delete(ctx, "students", "id", "5")))
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := st.Select(cctx, "students", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
