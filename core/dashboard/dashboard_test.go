package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

func TestCompute(t *testing.T) {
	snap := tablesync.SnapshotFrom(map[schema.CollectionID][]core.Record{
		schema.Students: {
			{"id": "1", "name": "Alice Smith", "department": "Computer Science"},
			{"id": "2", "name": "Bob Johnson", "department": "Computer Science"},
			{"id": "3", "name": "Charlie Davis", "department": "Electrical"},
			{"id": "4", "name": "Diana Prince"},
		},
		schema.Teachers: {{"id": "t1", "name": "Dr. Alan Turing"}},
		schema.Courses:  {{"course_code": "CS101", "course_name": "Intro to Programming"}},
	})

	stats := Compute(snap, 2)
	assert.Equal(t, Totals{Students: 4, Teachers: 1, Courses: 1, Assignments: 0}, stats.Totals)
	assert.Equal(t, 2, stats.AtRisk)
	assert.Empty(t, stats.Degraded)

	require.Len(t, stats.Departments, 4)
	assert.Equal(t, DepartmentStat{Name: "Computer Science", Code: "CS", Count: 2}, stats.Departments[0])
	assert.Equal(t, DepartmentStat{Name: "Electrical", Code: "EE", Count: 1}, stats.Departments[1])
	assert.Equal(t, 0, stats.Departments[3].Count)
}

func TestCompute_empty(t *testing.T) {
	stats := Compute(tablesync.NewSnapshot(), 0)
	assert.Equal(t, Totals{}, stats.Totals)
	assert.Len(t, stats.Departments, len(schema.Departments))
}
