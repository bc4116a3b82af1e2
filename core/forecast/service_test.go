package forecast_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	. "github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
	"github.com/trezcool/eduadmin/tests"
)

type fixture struct {
	engine *tablesync.Engine
	store  *testutil.FakeStore
	gen    *testutil.FakeGenerator
	svc    *Service
}

func setup(t *testing.T, response string) *fixture {
	t.Helper()
	st := testutil.NewFakeStore(true)
	eng := tablesync.NewEngine(st, core.NopLogger{}, 0)
	_, err := eng.RefreshAll(context.Background())
	require.NoError(t, err)

	gen := &testutil.FakeGenerator{Response: response}
	svc := NewService(eng, NewClient(gen), NewPersistence(eng), core.NopLogger{})
	return &fixture{engine: eng, store: st, gen: gen, svc: svc}
}

func TestClient_Predict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
		wantKind error
		check    func(t *testing.T, res Result)
	}{
		{
			name:     "valid",
			response: testutil.ValidForecast,
			check: func(t *testing.T, res Result) {
				assert.Equal(t, academic.ID("1"), res.StudentID)
				assert.Equal(t, 3.4, res.PredictedGPA)
				assert.Equal(t, "Medium", res.RiskLevel)
				assert.Equal(t, "Declining", res.PerformanceTrend)
				assert.Equal(t, 78, res.ConfidenceScore)
				assert.Len(t, res.RiskFactors, 2)
			},
		},
		{
			name:     "fenced and integral float confidence",
			response: "```json\n" + `{"predicted_gpa": 2, "risk_level": "High", "performance_trend": "Stable", "confidence_score": 60.0, "risk_factors": [], "recommendation": "Tutoring"}` + "\n```",
			check: func(t *testing.T, res Result) {
				assert.Equal(t, 60, res.ConfidenceScore)
				assert.Empty(t, res.RiskFactors)
			},
		},
		{name: "service down", genErr: io.ErrUnexpectedEOF, wantKind: ErrServiceUnavailable},
		{name: "not json", response: "I think the student will do fine.", wantKind: ErrInvalidResponse},
		{name: "missing confidence", response: `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "risk_factors": [], "recommendation": "ok"}`, wantKind: ErrInvalidResponse},
		{name: "fractional confidence", response: `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 80.5, "risk_factors": [], "recommendation": "ok"}`, wantKind: ErrInvalidResponse},
		{name: "quoted confidence", response: `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": "80", "risk_factors": [], "recommendation": "ok"}`, wantKind: ErrInvalidResponse},
		{name: "gpa out of range", response: `{"predicted_gpa": 4.5, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 80, "risk_factors": [], "recommendation": "ok"}`, wantKind: ErrInvalidResponse},
		{name: "unknown risk", response: `{"predicted_gpa": 3, "risk_level": "Severe", "performance_trend": "Stable", "confidence_score": 80, "risk_factors": [], "recommendation": "ok"}`, wantKind: ErrInvalidResponse},
		{name: "unknown field", response: `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 80, "risk_factors": [], "recommendation": "ok", "mood": "happy"}`, wantKind: ErrInvalidResponse},
		{name: "empty recommendation", response: `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 80, "risk_factors": [], "recommendation": "  "}`, wantKind: ErrInvalidResponse},
	}

	snap := tablesync.SnapshotFrom(map[schema.CollectionID][]core.Record{
		schema.Students: {{"id": "1", "name": "Alice Smith", "cgpa": 3.8, "current_semester": 4}},
	})
	student, ok := snap.Student("1")
	require.True(t, ok)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &testutil.FakeGenerator{Response: tt.response, Err: tt.genErr}
			res, err := NewClient(gen).Predict(context.Background(), student, snap)
			if tt.wantKind != nil {
				assert.ErrorIs(t, err, tt.wantKind)
				return
			}
			require.NoError(t, err)
			tt.check(t, res)

			require.Len(t, gen.Prompts(), 1)
			assert.Contains(t, gen.Prompts()[0], "Student: Alice Smith")
			assert.Contains(t, gen.Prompts()[0], "Avg Attendance: 80.0%")
		})
	}
}

func TestPredictionSchema(t *testing.T) {
	s := PredictionSchema()
	assert.Equal(t, TypeObject, s.Type)
	assert.ElementsMatch(t, []string{
		"predicted_gpa", "risk_level", "performance_trend", "confidence_score", "risk_factors", "recommendation",
	}, s.Required)
	assert.Equal(t, TypeInteger, s.Properties["confidence_score"].Type)
	assert.Equal(t, TypeString, s.Properties["risk_factors"].Items.Type)
}

func TestService_Run(t *testing.T) {
	f := setup(t, testutil.ValidForecast)
	defer SetNow(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))()

	res, err := f.svc.Run(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Medium", res.RiskLevel)
	assert.Equal(t, 1, f.store.Calls("insert"))

	preds := f.engine.Snapshot().Predictions()
	require.Len(t, preds, 1)
	assert.Equal(t, academic.ID("1"), preds[0].StudentID)
	assert.Equal(t, "2024-06-01T09:30:00Z", preds[0].PredictionDate)
	assert.Equal(t, academic.StringList{"attendance below 75%", "missed lab submissions"}, preds[0].RiskFactors)

	// the prompt was built from the seeded attendance: 38/40
	assert.Contains(t, f.gen.Prompts()[0], "Avg Attendance: 95.0%")
}

// cancelingGenerator answers and then cancels the caller's context.
type cancelingGenerator struct {
	*testutil.FakeGenerator
	cancel context.CancelFunc
}

func (g cancelingGenerator) GenerateJSON(ctx context.Context, prompt string, schema OutputSchema) (string, error) {
	defer g.cancel()
	return g.FakeGenerator.GenerateJSON(ctx, prompt, schema)
}

func TestService_Run_savesAfterCallerLeft(t *testing.T) {
	f := setup(t, testutil.ValidForecast)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := cancelingGenerator{FakeGenerator: f.gen, cancel: cancel}
	svc := NewService(f.engine, NewClient(gen), NewPersistence(f.engine), core.NopLogger{})

	_, err := svc.Run(ctx, "1")
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Len(t, f.engine.Snapshot().Predictions(), 1)
	assert.Equal(t, tablesync.Idle, f.engine.State().Status)
}

func TestService_Run_invalidResponseIsNotSaved(t *testing.T) {
	f := setup(t, `{"predicted_gpa": 3, "risk_level": "Low", "performance_trend": "Stable", "risk_factors": [], "recommendation": "ok"}`)

	_, err := f.svc.Run(context.Background(), "2")
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 0, f.store.Calls("insert"))
	assert.Empty(t, f.engine.Snapshot().Predictions())
}

func TestService_Run_unknownStudent(t *testing.T) {
	f := setup(t, testutil.ValidForecast)

	_, err := f.svc.Run(context.Background(), "404")
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.Equal(t, 0, f.gen.Calls())
}

func TestService_Run_dedupe(t *testing.T) {
	f := setup(t, testutil.ValidForecast)
	f.gen.Block = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.svc.Run(ctx, "3")
	}()
	require.Eventually(t, func() bool { return f.gen.Calls() == 1 }, time.Second, time.Millisecond)

	assert.True(t, f.svc.InFlight("3"))
	_, err := f.svc.TryRun(ctx, "3")
	assert.ErrorIs(t, err, ErrInFlight)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.svc.Run(ctx, "3")
	}()
	time.Sleep(20 * time.Millisecond)
	close(f.gen.Block)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, f.gen.Calls())
	assert.Equal(t, 1, f.store.Calls("insert"))
	assert.False(t, f.svc.InFlight("3"))
}

func TestLatest(t *testing.T) {
	snap := tablesync.SnapshotFrom(map[schema.CollectionID][]core.Record{
		schema.Students: {
			{"id": "1", "name": "Alice Smith"},
			{"id": "2", "name": "Bob Johnson"},
			{"id": "3", "name": "Charlie Davis"},
		},
		schema.MLPredictions: {
			{"id": "p1", "student_id": "1", "predicted_gpa": 3.1, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 70, "prediction_date": "2024-05-01T10:00:00Z"},
			{"id": "p2", "student_id": "1", "predicted_gpa": 2.1, "risk_level": "High", "performance_trend": "Declining", "confidence_score": 90, "prediction_date": "2024-06-01T10:00:00Z"},
			{"id": "p3", "student_id": "1", "predicted_gpa": 3.0, "risk_level": "Low", "performance_trend": "Stable", "confidence_score": 60, "prediction_date": "2024-04-01T10:00:00Z"},
			{"id": "p4", "student_id": "2", "predicted_gpa": 3.5, "risk_level": "Low", "performance_trend": "Improving", "confidence_score": 80, "prediction_date": "2024-06-01T10:00:00Z"},
			{"id": "p5", "student_id": "2", "predicted_gpa": 3.6, "risk_level": "Low", "performance_trend": "Improving", "confidence_score": 85, "prediction_date": "2024-06-01T10:00:00Z"},
		},
	})

	p, ok := Latest(snap, "1")
	require.True(t, ok)
	assert.Equal(t, academic.ID("p2"), p.ID)

	p, ok = Latest(snap, "2")
	require.True(t, ok)
	assert.Equal(t, academic.ID("p5"), p.ID, "ties go to the later row")

	_, ok = Latest(snap, "3")
	assert.False(t, ok)

	overview := Overview(snap)
	require.Len(t, overview, 3)
	assert.True(t, overview[0].AtRisk)
	assert.Equal(t, academic.ID("p2"), overview[0].Forecast.ID)
	assert.False(t, overview[1].AtRisk)
	assert.Nil(t, overview[2].Forecast)
}
