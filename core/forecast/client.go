// Package forecast turns the snapshot rows of a student into an AI performance forecast
// and stores it back as an ml_predictions row.
package forecast

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/tablesync"
)

// FieldType is the type of a value in an OutputSchema.
type FieldType string

const (
	TypeObject  FieldType = "object"
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeArray   FieldType = "array"
)

// OutputSchema describes the JSON document the prediction service must answer with.
type OutputSchema struct {
	Type        FieldType
	Description string
	Enum        []string
	Properties  map[string]*OutputSchema
	// PropertyOrder keeps the properties in a stable order for services that care.
	PropertyOrder []string
	Items         *OutputSchema
	Required      []string
}

// Generator is a structured-prediction service: it answers prompt with a JSON document
// shaped by schema.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema OutputSchema) (string, error)
}

var predictionFields = []string{
	"predicted_gpa", "risk_level", "performance_trend", "confidence_score", "risk_factors", "recommendation",
}

// PredictionSchema is the schema of a forecast. Every field is required.
func PredictionSchema() OutputSchema {
	return OutputSchema{
		Type: TypeObject,
		Properties: map[string]*OutputSchema{
			"predicted_gpa":     {Type: TypeNumber, Description: "Predicted GPA (0.00 to 4.00)"},
			"risk_level":        {Type: TypeString, Description: "One of: Low, Medium, High", Enum: []string{"Low", "Medium", "High"}},
			"performance_trend": {Type: TypeString, Description: "One of: Improving, Stable, Declining", Enum: []string{"Improving", "Stable", "Declining"}},
			"confidence_score":  {Type: TypeInteger, Description: "Percentage 0-100"},
			"risk_factors":      {Type: TypeArray, Description: "Specific reasons for the risk level", Items: &OutputSchema{Type: TypeString}},
			"recommendation":    {Type: TypeString, Description: "Actionable advice for teachers"},
		},
		PropertyOrder: append([]string(nil), predictionFields...),
		Required:      append([]string(nil), predictionFields...),
	}
}

type Client struct {
	gen        Generator
	validate   *validator.Validate
	translator ut.Translator
}

func NewClient(gen Generator) *Client {
	validate, translator := core.NewValidator()
	return &Client{gen: gen, validate: validate, translator: translator}
}

// Predict computes the metrics of student, asks the prediction service for a forecast and
// validates the answer. It does not retry.
func (c *Client) Predict(ctx context.Context, student academic.Student, snap *tablesync.Snapshot) (Result, error) {
	metrics := ComputeStudentMetrics(student.ID, snap)
	prompt := RenderPrompt(student, metrics)

	raw, err := c.gen.GenerateJSON(ctx, prompt, PredictionSchema())
	if err != nil {
		return Result{}, &Error{Kind: ErrServiceUnavailable, StudentID: student.ID, Err: err}
	}

	res, err := c.parse(raw)
	if err != nil {
		return Result{}, &Error{Kind: ErrInvalidResponse, StudentID: student.ID, Err: err}
	}
	res.StudentID = student.ID
	return res, nil
}

// wireResult mirrors PredictionSchema. Pointers tell missing fields from zero values.
type wireResult struct {
	PredictedGPA     *float64         `json:"predicted_gpa"`
	RiskLevel        *string          `json:"risk_level"`
	PerformanceTrend *string          `json:"performance_trend"`
	ConfidenceScore  *json.RawMessage `json:"confidence_score"`
	RiskFactors      *[]string        `json:"risk_factors"`
	Recommendation   *string          `json:"recommendation"`
}

func (c *Client) parse(raw string) (Result, error) {
	dec := json.NewDecoder(strings.NewReader(stripFence(raw)))
	dec.DisallowUnknownFields()
	var wr wireResult
	if err := dec.Decode(&wr); err != nil {
		return Result{}, errors.Wrap(err, "decoding response")
	}
	if _, err := dec.Token(); err != io.EOF {
		return Result{}, errors.New("decoding response: trailing data")
	}

	var missing []core.FieldError
	check := func(field string, present bool) {
		if !present {
			missing = append(missing, core.FieldError{Field: field, Error: field + " is required"})
		}
	}
	check("predicted_gpa", wr.PredictedGPA != nil)
	check("risk_level", wr.RiskLevel != nil)
	check("performance_trend", wr.PerformanceTrend != nil)
	check("confidence_score", wr.ConfidenceScore != nil && string(*wr.ConfidenceScore) != "null")
	check("risk_factors", wr.RiskFactors != nil)
	check("recommendation", wr.Recommendation != nil)
	if len(missing) > 0 {
		return Result{}, core.NewValidationError(nil, missing...)
	}

	confidence, err := integer(*wr.ConfidenceScore)
	if err != nil {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "confidence_score", Error: err.Error()})
	}

	res := Result{
		PredictedGPA:     *wr.PredictedGPA,
		RiskLevel:        *wr.RiskLevel,
		PerformanceTrend: *wr.PerformanceTrend,
		ConfidenceScore:  confidence,
		RiskFactors:      *wr.RiskFactors,
		Recommendation:   strings.TrimSpace(*wr.Recommendation),
	}
	if err := c.validate.Struct(res); err != nil {
		return Result{}, core.TranslateValidationErrors(err, c.translator)
	}
	return res, nil
}

// integer accepts 87 and 87.0 but neither 87.5 nor "87".
func integer(raw json.RawMessage) (int, error) {
	var n json.Number
	if len(raw) == 0 || raw[0] == '"' {
		return 0, errors.Errorf("confidence_score must be an integer, got %s", raw)
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.Errorf("confidence_score must be an integer, got %s", raw)
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, errors.Errorf("confidence_score must be an integer, got %s", n)
	}
	return int(f), nil
}

// stripFence removes a markdown code fence some models wrap JSON answers in.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
