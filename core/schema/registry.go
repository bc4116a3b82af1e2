package schema

import "fmt"

// SurrogateKey is the store-assigned primary key used by most collections.
const SurrogateKey = "id"

// Collections
const (
	Students            CollectionID = "students"
	Teachers            CollectionID = "teachers"
	Courses             CollectionID = "courses"
	Assignments         CollectionID = "assignments"
	Attendance          CollectionID = "attendance"
	Enrollments         CollectionID = "enrollments"
	Grades              CollectionID = "grades"
	Materials           CollectionID = "materials"
	Quizzes             CollectionID = "quizzes"
	Submissions         CollectionID = "submissions"
	TeachingAssignments CollectionID = "teaching_assignments"
	MLPredictions       CollectionID = "ml_predictions"
)

var (
	Departments  = []string{"Computer Science", "Electrical", "Mechanical", "Civil"}
	RiskLevels   = []string{"Low", "Medium", "High"}
	Trends       = []string{"Improving", "Stable", "Declining"}
	GradeLetters = []string{"O", "A+", "A", "B+", "B", "C", "P", "F"}
)

// registry is ordered: it drives the order in which collections are listed.
var registry = []CollectionSchema{
	{
		ID:         Students,
		Label:      "Students",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "reg_no", Label: "Reg No", Type: Text},
			{Key: "name", Label: "Name", Type: Text},
			{Key: "email", Label: "Email", Type: Text},
			{Key: "department", Label: "Department", Type: Select, Options: Departments},
			{Key: "cgpa", Label: "CGPA", Type: Number},
			{Key: "current_semester", Label: "Semester", Type: Number},
		},
	},
	{
		ID:         MLPredictions,
		Label:      "AI Forecasts",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "student_id", Label: "Student ID", Type: Text},
			{Key: "predicted_gpa", Label: "Pred. GPA", Type: Number},
			{Key: "risk_level", Label: "Risk", Type: Select, Options: RiskLevels},
			{Key: "performance_trend", Label: "Trend", Type: Select, Options: Trends},
			{Key: "confidence_score", Label: "Conf %", Type: Number},
			{Key: "risk_factors", Label: "Risk Factors", Type: JSON, Hidden: true},
			{Key: "recommendation", Label: "Recommendation", Type: Text, Hidden: true},
			{Key: "prediction_date", Label: "Predicted On", Type: Text, Hidden: true},
		},
	},
	{
		ID:         Teachers,
		Label:      "Teachers",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "staff_id", Label: "Staff ID", Type: Text},
			{Key: "name", Label: "Name", Type: Text},
			{Key: "email", Label: "Email", Type: Text},
			{Key: "department", Label: "Department", Type: Select, Options: Departments},
			{Key: "designation", Label: "Designation", Type: Text},
		},
	},
	{
		ID:         Courses,
		Label:      "Courses",
		PrimaryKey: "course_code",
		Columns: []Column{
			{Key: "course_code", Label: "Code", Type: Text},
			{Key: "course_name", Label: "Course Name", Type: Text},
			{Key: "semester", Label: "Semester", Type: Number},
			{Key: "department", Label: "Department", Type: Select, Options: Departments},
			{Key: "description", Label: "Description", Type: Text, Hidden: true},
			{Key: "id", Label: "ID", Type: Text, Hidden: true},
		},
	},
	{
		ID:         Assignments,
		Label:      "Assignments",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "title", Label: "Title", Type: Text},
			{Key: "deadline", Label: "Deadline", Type: Date},
			{Key: "max_marks", Label: "Max Marks", Type: Number},
		},
	},
	{
		ID:         Attendance,
		Label:      "Attendance",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "student_id", Label: "Student ID", Type: Text},
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "conducted", Label: "Conducted", Type: Number},
			{Key: "attended", Label: "Attended", Type: Number},
			{Key: "percentage", Label: "Percentage", Type: Number, Hidden: true},
		},
	},
	{
		ID:         Enrollments,
		Label:      "Enrollments",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "student_id", Label: "Student ID", Type: Text},
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "semester", Label: "Semester", Type: Number},
			{Key: "enrolled_on", Label: "Enrolled On", Type: Date},
		},
	},
	{
		ID:         Grades,
		Label:      "Grades",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "student_id", Label: "Student ID", Type: Text},
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "semester", Label: "Semester", Type: Number},
			{Key: "grade", Label: "Grade", Type: Select, Options: GradeLetters},
		},
	},
	{
		ID:         Materials,
		Label:      "Materials",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "title", Label: "Title", Type: Text},
			{Key: "url", Label: "Link", Type: Text},
			{Key: "posted_on", Label: "Posted On", Type: Date},
		},
	},
	{
		ID:         Quizzes,
		Label:      "Quizzes",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "title", Label: "Title", Type: Text},
			{Key: "scheduled_on", Label: "Scheduled On", Type: Date},
			{Key: "max_marks", Label: "Max Marks", Type: Number},
		},
	},
	{
		ID:         Submissions,
		Label:      "Submissions",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "assignment_id", Label: "Assignment", Type: Text},
			{Key: "student_id", Label: "Student ID", Type: Text},
			{Key: "submitted_on", Label: "Submitted On", Type: Date},
			{Key: "marks", Label: "Marks", Type: Number},
		},
	},
	{
		ID:         TeachingAssignments,
		Label:      "Teaching Assignments",
		PrimaryKey: SurrogateKey,
		Columns: []Column{
			{Key: "teacher_id", Label: "Teacher ID", Type: Text},
			{Key: "course_code", Label: "Course", Type: Text},
			{Key: "semester", Label: "Semester", Type: Number},
		},
	},
}

var byID = indexRegistry()

func indexRegistry() map[CollectionID]int {
	idx := make(map[CollectionID]int, len(registry))
	for i, cs := range registry {
		if err := cs.verify(); err != nil {
			panic(err)
		}
		if _, dup := idx[cs.ID]; dup {
			panic(fmt.Sprintf("schema: collection %q registered twice", cs.ID))
		}
		idx[cs.ID] = i
	}
	return idx
}

// Get returns the schema registered for id.
func Get(id CollectionID) (CollectionSchema, bool) {
	i, ok := byID[id]
	if !ok {
		return CollectionSchema{}, false
	}
	return copySchema(registry[i]), true
}

// MustGet is like Get but panics on unknown ids. Only use it with the constants above.
func MustGet(id CollectionID) CollectionSchema {
	cs, ok := Get(id)
	if !ok {
		panic(fmt.Sprintf("schema: unknown collection %q", id))
	}
	return cs
}

// All returns every registered schema, in registration order.
func All() []CollectionSchema {
	all := make([]CollectionSchema, 0, len(registry))
	for _, cs := range registry {
		all = append(all, copySchema(cs))
	}
	return all
}

// IDs returns every registered collection id, in registration order.
func IDs() []CollectionID {
	ids := make([]CollectionID, 0, len(registry))
	for _, cs := range registry {
		ids = append(ids, cs.ID)
	}
	return ids
}

// copySchema keeps callers from mutating the registry through shared slices.
func copySchema(cs CollectionSchema) CollectionSchema {
	cols := make([]Column, len(cs.Columns))
	for i, c := range cs.Columns {
		if c.Options != nil {
			c.Options = append([]string(nil), c.Options...)
		}
		cols[i] = c
	}
	cs.Columns = cols
	return cs
}
