package forecast

import (
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/tablesync"
)

// DefaultAttendance is assumed for students without any usable attendance row.
const DefaultAttendance = 0.80

// StudentMetrics are derived from the snapshot for every forecast. They are never cached.
type StudentMetrics struct {
	// AverageAttendance is the mean attended/conducted ratio, in [0,1].
	AverageAttendance  float64
	AttendanceMeasured bool
	// RecentGrades are the student's grade labels, in stored order.
	RecentGrades []string
}

// AttendancePercent returns AverageAttendance as a percentage.
func (m StudentMetrics) AttendancePercent() float64 {
	return m.AverageAttendance * 100
}

// ComputeStudentMetrics aggregates the attendance and grades rows of a student.
// Attendance rows with no conducted sessions carry no information and are skipped.
func ComputeStudentMetrics(studentID academic.ID, snap *tablesync.Snapshot) StudentMetrics {
	m := StudentMetrics{AverageAttendance: DefaultAttendance, RecentGrades: []string{}}

	var sum float64
	var n int
	for _, rec := range snap.Attendance() {
		if rec.StudentID != studentID || rec.Conducted <= 0 {
			continue
		}
		sum += rec.Attended / rec.Conducted
		n++
	}
	if n > 0 {
		m.AverageAttendance = sum / float64(n)
		m.AttendanceMeasured = true
	}

	for _, g := range snap.Grades() {
		if g.StudentID == studentID {
			m.RecentGrades = append(m.RecentGrades, g.Grade)
		}
	}
	return m
}
