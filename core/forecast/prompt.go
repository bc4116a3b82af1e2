package forecast

import (
	"strconv"
	"strings"

	"github.com/trezcool/eduadmin/core/academic"
)

const notAvailable = "N/A"

// RenderPrompt builds the instruction sent to the prediction service. The output only
// depends on its inputs.
func RenderPrompt(student academic.Student, m StudentMetrics) string {
	cgpa := notAvailable
	if student.CGPA.Valid {
		cgpa = strconv.FormatFloat(student.CGPA.Float64, 'f', -1, 64)
	}
	semester := notAvailable
	if student.CurrentSemester.Valid {
		semester = strconv.Itoa(student.CurrentSemester.Int)
	}
	grades := notAvailable
	if len(m.RecentGrades) > 0 {
		grades = strings.Join(m.RecentGrades, ", ")
	}

	var b strings.Builder
	b.WriteString("Act as an academic predictive engine. Based on the following student data, ")
	b.WriteString("forecast their performance for the next semester.\n\n")
	b.WriteString("Student: " + student.Name + "\n")
	b.WriteString("Current CGPA: " + cgpa + "\n")
	b.WriteString("Current Semester: " + semester + "\n")
	b.WriteString("Avg Attendance: " + strconv.FormatFloat(m.AttendancePercent(), 'f', 1, 64) + "%\n")
	b.WriteString("Recent Grades: " + grades + "\n\n")
	b.WriteString("Provide your prediction in a structured JSON format.")
	return b.String()
}
