package forecast

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/tablesync"
)

// SnapshotSource hands out the current snapshot (tablesync.Engine does).
type SnapshotSource interface {
	Snapshot() *tablesync.Snapshot
}

// StudentForecast is a student along with its most recent forecast, if any.
type StudentForecast struct {
	Student  academic.Student     `json:"student"`
	Forecast *academic.Prediction `json:"forecast"`
	AtRisk   bool                 `json:"at_risk"`
}

type Service struct {
	source  SnapshotSource
	client  *Client
	persist *Persistence
	log     core.Logger

	group    singleflight.Group
	mu       sync.Mutex
	inFlight map[academic.ID]bool
}

func NewService(source SnapshotSource, client *Client, persist *Persistence, log core.Logger) *Service {
	if log == nil {
		log = core.NopLogger{}
	}
	return &Service{
		source:   source,
		client:   client,
		persist:  persist,
		log:      log,
		inFlight: make(map[academic.ID]bool),
	}
}

// Run forecasts a student and saves the result. A call for a student whose forecast is
// already running waits for that run and shares its outcome.
func (svc *Service) Run(ctx context.Context, studentID academic.ID) (Result, error) {
	v, err, shared := svc.group.Do(studentID.String(), func() (interface{}, error) {
		svc.setInFlight(studentID, true)
		defer svc.setInFlight(studentID, false)
		return svc.run(ctx, studentID)
	})
	if shared {
		svc.log.Debug("joined running forecast", "student", studentID)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// TryRun is Run for callers that must not wait on somebody else's run: it fails with
// ErrInFlight when a forecast of the student is already running.
func (svc *Service) TryRun(ctx context.Context, studentID academic.ID) (Result, error) {
	if svc.InFlight(studentID) {
		return Result{}, &Error{Kind: ErrInFlight, StudentID: studentID}
	}
	return svc.Run(ctx, studentID)
}

// InFlight reports whether a forecast of the student is running.
func (svc *Service) InFlight(studentID academic.ID) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.inFlight[studentID]
}

func (svc *Service) setInFlight(studentID academic.ID, running bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if running {
		svc.inFlight[studentID] = true
		return
	}
	delete(svc.inFlight, studentID)
}

func (svc *Service) run(ctx context.Context, studentID academic.ID) (Result, error) {
	snap := svc.source.Snapshot()
	student, ok := snap.Student(studentID)
	if !ok {
		return Result{}, &Error{Kind: ErrStudentNotFound, StudentID: studentID}
	}

	svc.log.Info("forecasting student", "student", studentID)
	res, err := svc.client.Predict(ctx, student, snap)
	if err != nil {
		svc.log.Warn("forecast failed", "student", studentID, "error", err)
		return Result{}, err
	}
	// a generated forecast is saved even when the caller has gone away
	if err := svc.persist.Save(context.WithoutCancel(ctx), res); err != nil {
		svc.log.Error("saving forecast failed", "student", studentID, "error", err)
		return Result{}, err
	}
	svc.log.Info("forecast saved", "student", studentID, "risk", res.RiskLevel, "gpa", res.PredictedGPA)
	return res, nil
}

// Latest returns the most recent forecast of a student. Forecasts are ordered by
// prediction date, rows that come later in the snapshot win ties.
func Latest(snap *tablesync.Snapshot, studentID academic.ID) (academic.Prediction, bool) {
	var latest academic.Prediction
	var found bool
	for _, p := range snap.Predictions() {
		if p.StudentID != studentID {
			continue
		}
		if !found || !p.PredictedAt().Before(latest.PredictedAt()) {
			latest = p
			found = true
		}
	}
	return latest, found
}

// Overview lists every student with its latest forecast.
func Overview(snap *tablesync.Snapshot) []StudentForecast {
	students := snap.Students()
	latest := make(map[academic.ID]academic.Prediction)
	for _, p := range snap.Predictions() {
		cur, ok := latest[p.StudentID]
		if !ok || !p.PredictedAt().Before(cur.PredictedAt()) {
			latest[p.StudentID] = p
		}
	}

	overview := make([]StudentForecast, 0, len(students))
	for _, s := range students {
		sf := StudentForecast{Student: s}
		if p, ok := latest[s.ID]; ok {
			p := p
			sf.Forecast = &p
			sf.AtRisk = p.IsAtRisk()
		}
		overview = append(overview, sf)
	}
	return overview
}
