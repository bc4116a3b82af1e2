package forecast

import (
	"time"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
)

// Result is a validated forecast for one student.
type Result struct {
	StudentID        academic.ID `json:"student_id"`
	PredictedGPA     float64     `json:"predicted_gpa" validate:"gte=0,lte=4"`
	RiskLevel        string      `json:"risk_level" validate:"oneof=Low Medium High"`
	PerformanceTrend string      `json:"performance_trend" validate:"oneof=Improving Stable Declining"`
	ConfidenceScore  int         `json:"confidence_score" validate:"gte=0,lte=100"`
	RiskFactors      []string    `json:"risk_factors" validate:"required,dive,required"`
	Recommendation   string      `json:"recommendation" validate:"required"`
}

// Record returns the ml_predictions row for the result, dated at.
func (r Result) Record(at time.Time) core.Record {
	factors := make([]interface{}, len(r.RiskFactors))
	for i, f := range r.RiskFactors {
		factors[i] = f
	}
	return core.Record{
		"student_id":        r.StudentID.String(),
		"predicted_gpa":     r.PredictedGPA,
		"risk_level":        r.RiskLevel,
		"performance_trend": r.PerformanceTrend,
		"confidence_score":  float64(r.ConfidenceScore),
		"risk_factors":      factors,
		"recommendation":    r.Recommendation,
		"prediction_date":   at.UTC().Format(time.RFC3339),
	}
}
