// Package academic holds one concrete type per synced collection. Rows coming from the
// remote store are decoded and validated into these types before they reach the snapshot.
package academic

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduadmin/core/schema"
)

// ID is a primary/foreign key value. Stores hand them out either as strings (uuid, text)
// or as numbers (serial), both decode to the same string form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// KeyOf returns the string form of a raw primary key value.
func KeyOf(v interface{}) ID {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return ID(val)
	case ID:
		return val
	case float64:
		return ID(strconv.FormatFloat(val, 'f', -1, 64))
	case int:
		return ID(strconv.Itoa(val))
	case int64:
		return ID(strconv.FormatInt(val, 10))
	case json.Number:
		return ID(val.String())
	default:
		b, _ := json.Marshal(val)
		return ID(b)
	}
}

// StringList is a JSON column holding a list of strings. Some stores return JSON
// columns as their text encoding, both forms are accepted.
type StringList []string

func (sl *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*sl = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*sl = nil
			return nil
		}
		data = []byte(s)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*sl = list
	return nil
}

// Entity is any decoded collection row.
type Entity interface {
	Collection() schema.CollectionID
	Key() ID
}

type Student struct {
	ID              ID           `json:"id" validate:"required"`
	RegNo           string       `json:"reg_no"`
	Name            string       `json:"name" validate:"required"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Department      string       `json:"department"`
	CGPA            null.Float64 `json:"cgpa" validate:"omitempty,gte=0,lte=10"`
	CurrentSemester null.Int     `json:"current_semester" validate:"omitempty,gte=1,lte=12"`
}

func (Student) Collection() schema.CollectionID { return schema.Students }
func (s Student) Key() ID { return s.ID }

type Teacher struct {
	ID          ID     `json:"id" validate:"required"`
	StaffID     string `json:"staff_id"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

func (Teacher) Collection() schema.CollectionID { return schema.Teachers }
func (t Teacher) Key() ID { return t.ID }

type Course struct {
	CourseCode  string      `json:"course_code" validate:"required"`
	CourseName  string      `json:"course_name" validate:"required"`
	Semester    null.Int    `json:"semester" validate:"omitempty,gte=1,lte=12"`
	Department  string      `json:"department"`
	Description null.String `json:"description"`
	ID          ID          `json:"id,omitempty"`
}

func (Course) Collection() schema.CollectionID { return schema.Courses }
func (c Course) Key() ID { return ID(c.CourseCode) }

type Assignment struct {
	ID         ID           `json:"id" validate:"required"`
	CourseCode string       `json:"course_code" validate:"required"`
	Title      string       `json:"title" validate:"required"`
	Deadline   string       `json:"deadline" validate:"omitempty,date"`
	MaxMarks   null.Float64 `json:"max_marks" validate:"omitempty,gte=0"`
}

func (Assignment) Collection() schema.CollectionID { return schema.Assignments }
func (a Assignment) Key() ID { return a.ID }

type AttendanceRecord struct {
	ID         ID           `json:"id" validate:"required"`
	StudentID  ID           `json:"student_id" validate:"required"`
	CourseCode string       `json:"course_code"`
	Conducted  float64      `json:"conducted" validate:"gte=0"`
	Attended   float64      `json:"attended" validate:"gte=0,ltefield=Conducted"`
	Percentage null.Float64 `json:"percentage" validate:"omitempty,gte=0,lte=100"`
}

func (AttendanceRecord) Collection() schema.CollectionID { return schema.Attendance }
func (a AttendanceRecord) Key() ID { return a.ID }

type Enrollment struct {
	ID         ID       `json:"id" validate:"required"`
	StudentID  ID       `json:"student_id" validate:"required"`
	CourseCode string   `json:"course_code" validate:"required"`
	Semester   null.Int `json:"semester" validate:"omitempty,gte=1,lte=12"`
	EnrolledOn string   `json:"enrolled_on" validate:"omitempty,date"`
}

func (Enrollment) Collection() schema.CollectionID { return schema.Enrollments }
func (e Enrollment) Key() ID { return e.ID }

type Grade struct {
	ID         ID       `json:"id" validate:"required"`
	StudentID  ID       `json:"student_id" validate:"required"`
	CourseCode string   `json:"course_code"`
	Semester   null.Int `json:"semester" validate:"omitempty,gte=1,lte=12"`
	Grade      string   `json:"grade" validate:"required"`
}

func (Grade) Collection() schema.CollectionID { return schema.Grades }
func (g Grade) Key() ID { return g.ID }

type Material struct {
	ID         ID     `json:"id" validate:"required"`
	CourseCode string `json:"course_code" validate:"required"`
	Title      string `json:"title" validate:"required"`
	URL        string `json:"url" validate:"omitempty,url"`
	PostedOn   string `json:"posted_on" validate:"omitempty,date"`
}

func (Material) Collection() schema.CollectionID { return schema.Materials }
func (m Material) Key() ID { return m.ID }

type Quiz struct {
	ID          ID           `json:"id" validate:"required"`
	CourseCode  string       `json:"course_code" validate:"required"`
	Title       string       `json:"title" validate:"required"`
	ScheduledOn string       `json:"scheduled_on" validate:"omitempty,date"`
	MaxMarks    null.Float64 `json:"max_marks" validate:"omitempty,gte=0"`
}

func (Quiz) Collection() schema.CollectionID { return schema.Quizzes }
func (q Quiz) Key() ID { return q.ID }

type Submission struct {
	ID           ID           `json:"id" validate:"required"`
	AssignmentID ID           `json:"assignment_id" validate:"required"`
	StudentID    ID           `json:"student_id" validate:"required"`
	SubmittedOn  string       `json:"submitted_on" validate:"omitempty,date"`
	Marks        null.Float64 `json:"marks" validate:"omitempty,gte=0"`
}

func (Submission) Collection() schema.CollectionID { return schema.Submissions }
func (s Submission) Key() ID { return s.ID }

type TeachingAssignment struct {
	ID         ID       `json:"id" validate:"required"`
	TeacherID  ID       `json:"teacher_id" validate:"required"`
	CourseCode string   `json:"course_code" validate:"required"`
	Semester   null.Int `json:"semester" validate:"omitempty,gte=1,lte=12"`
}

func (TeachingAssignment) Collection() schema.CollectionID { return schema.TeachingAssignments }
func (t TeachingAssignment) Key() ID { return t.ID }

// Prediction is a persisted forecast row.
type Prediction struct {
	ID               ID         `json:"id" validate:"required"`
	StudentID        ID         `json:"student_id" validate:"required"`
	PredictedGPA     float64    `json:"predicted_gpa" validate:"gte=0,lte=4"`
	RiskLevel        string     `json:"risk_level" validate:"oneof=Low Medium High"`
	PerformanceTrend string     `json:"performance_trend" validate:"oneof=Improving Stable Declining"`
	ConfidenceScore  int        `json:"confidence_score" validate:"gte=0,lte=100"`
	RiskFactors      StringList `json:"risk_factors"`
	Recommendation   string     `json:"recommendation"`
	PredictionDate   string     `json:"prediction_date" validate:"omitempty,timestamp"`
}

func (Prediction) Collection() schema.CollectionID { return schema.MLPredictions }
func (p Prediction) Key() ID { return p.ID }

// PredictedAt returns the parsed prediction date (zero when unknown).
func (p Prediction) PredictedAt() time.Time {
	t, _ := time.Parse(time.RFC3339, p.PredictionDate)
	return t
}

// IsAtRisk reports whether the forecast calls for an intervention.
func (p Prediction) IsAtRisk() bool {
	return p.RiskLevel == "High" || p.RiskLevel == "Medium"
}
