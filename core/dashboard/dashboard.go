// Package dashboard summarizes a snapshot for the overview screen.
package dashboard

import (
	"sort"

	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type (
	Stats struct {
		Generation  uint64           `json:"generation"`
		Totals      Totals           `json:"totals"`
		Departments []DepartmentStat `json:"departments"`
		AtRisk      int              `json:"at_risk"`
		Degraded    []string         `json:"degraded,omitempty"`
	}

	Totals struct {
		Students    int `json:"students"`
		Teachers    int `json:"teachers"`
		Courses     int `json:"courses"`
		Assignments int `json:"assignments"`
	}

	DepartmentStat struct {
		Name  string `json:"name"`
		Code  string `json:"code"`
		Count int    `json:"count"`
	}
)

// departmentCodes are the short names shown on the enrollment chart.
var departmentCodes = map[string]string{
	"Computer Science": "CS",
	"Electrical":       "EE",
	"Mechanical":       "ME",
	"Civil":            "CE",
}

// Compute returns the dashboard figures of snap. atRisk counts students whose most
// recent forecast is High risk; callers pass it in to keep this package free of the
// forecast rules.
func Compute(snap *tablesync.Snapshot, atRisk int) Stats {
	stats := Stats{
		Generation: snap.Generation(),
		Totals: Totals{
			Students:    snap.Len(schema.Students),
			Teachers:    snap.Len(schema.Teachers),
			Courses:     snap.Len(schema.Courses),
			Assignments: snap.Len(schema.Assignments),
		},
		AtRisk: atRisk,
	}

	counts := make(map[string]int, len(schema.Departments))
	for _, s := range snap.Students() {
		counts[s.Department]++
	}
	// students outside the known departments are left out of the chart
	for _, dept := range schema.Departments {
		stats.Departments = append(stats.Departments, DepartmentStat{
			Name:  dept,
			Code:  departmentCodes[dept],
			Count: counts[dept],
		})
	}

	for id := range snap.Degraded() {
		stats.Degraded = append(stats.Degraded, id.String())
	}
	sort.Strings(stats.Degraded)
	return stats
}
