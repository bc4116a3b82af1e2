package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
)

func TestDecoder_Decode(t *testing.T) {
	dec := NewDecoder()

	tests := []struct {
		name      string
		coll      schema.CollectionID
		rec       core.Record
		want      Entity
		wantField string // field expected in the validation error
		wantErr   bool
	}{
		{
			name: "student",
			coll: schema.Students,
			rec: core.Record{
				"id": float64(1), "reg_no": "2023CS01", "name": "Alice Smith", "email": "alice@univ.edu",
				"department": "Computer Science", "cgpa": 3.8, "current_semester": float64(4),
			},
			want: Student{
				ID: "1", RegNo: "2023CS01", Name: "Alice Smith", Email: "alice@univ.edu",
				Department: "Computer Science", CGPA: null.Float64From(3.8), CurrentSemester: null.IntFrom(4),
			},
		},
		{
			name: "student with null cgpa",
			coll: schema.Students,
			rec:  core.Record{"id": "s-1", "name": "Bob", "cgpa": nil},
			want: Student{ID: "s-1", Name: "Bob"},
		},
		{
			name:      "student without name",
			coll:      schema.Students,
			rec:       core.Record{"id": "s-1"},
			wantField: "name",
		},
		{
			name:      "student with bad email",
			coll:      schema.Students,
			rec:       core.Record{"id": "s-1", "name": "Bob", "email": "nope"},
			wantField: "email",
		},
		{
			name: "course keyed by code",
			coll: schema.Courses,
			rec:  core.Record{"course_code": "CS101", "course_name": "Intro to Programming", "semester": float64(1)},
			want: Course{CourseCode: "CS101", CourseName: "Intro to Programming", Semester: null.IntFrom(1)},
		},
		{
			name:      "attendance attended above conducted",
			coll:      schema.Attendance,
			rec:       core.Record{"id": "at1", "student_id": "1", "conducted": float64(10), "attended": float64(11)},
			wantField: "attended",
		},
		{
			name: "prediction with text risk factors",
			coll: schema.MLPredictions,
			rec: core.Record{
				"id": "p1", "student_id": "1", "predicted_gpa": 3.2, "risk_level": "Low",
				"performance_trend": "Stable", "confidence_score": float64(80),
				"risk_factors": `["attendance"]`, "recommendation": "Keep going",
				"prediction_date": "2024-05-01T10:00:00Z",
			},
			want: Prediction{
				ID: "p1", StudentID: "1", PredictedGPA: 3.2, RiskLevel: "Low", PerformanceTrend: "Stable",
				ConfidenceScore: 80, RiskFactors: StringList{"attendance"}, Recommendation: "Keep going",
				PredictionDate: "2024-05-01T10:00:00Z",
			},
		},
		{
			name:      "prediction with unknown risk",
			coll:      schema.MLPredictions,
			rec:       core.Record{"id": "p1", "student_id": "1", "risk_level": "Severe", "performance_trend": "Stable"},
			wantField: "risk_level",
		},
		{
			name:    "wrong value type",
			coll:    schema.Students,
			rec:     core.Record{"id": "s-1", "name": float64(3)},
			wantErr: true,
		},
		{
			name:    "unsupported collection",
			coll:    "lockers",
			rec:     core.Record{"id": "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dec.Decode(tt.coll, tt.rec)
			if tt.wantField != "" {
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Contains(t, vErr.FieldMap(), tt.wantField)
				return
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.coll, got.Collection())
		})
	}
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, ID(""), KeyOf(nil))
	assert.Equal(t, ID("42"), KeyOf(float64(42)))
	assert.Equal(t, ID("4.5"), KeyOf(4.5))
	assert.Equal(t, ID("7"), KeyOf(int64(7)))
	assert.Equal(t, ID("CS101"), KeyOf("CS101"))
}

func TestPrediction_PredictedAt(t *testing.T) {
	p := Prediction{PredictionDate: "2024-05-01T10:00:00Z"}
	assert.Equal(t, 2024, p.PredictedAt().Year())
	assert.True(t, Prediction{}.PredictedAt().IsZero())
	assert.True(t, Prediction{RiskLevel: "Medium"}.IsAtRisk())
	assert.False(t, Prediction{RiskLevel: "Low"}.IsAtRisk())
}
