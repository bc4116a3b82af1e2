package forecast

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
)

// overridden in tests
var nowFunc = func() time.Time { return time.Now().UTC() }

// RecordCreator creates a row in a collection (tablesync.Engine does).
type RecordCreator interface {
	Create(ctx context.Context, id schema.CollectionID, rec core.Record) error
}

// Persistence appends forecasts to the ml_predictions collection. Older forecasts of the
// same student are kept.
type Persistence struct {
	creator RecordCreator
}

func NewPersistence(creator RecordCreator) *Persistence {
	return &Persistence{creator: creator}
}

func (p *Persistence) Save(ctx context.Context, res Result) error {
	if err := p.creator.Create(ctx, schema.MLPredictions, res.Record(nowFunc())); err != nil {
		return errors.Wrapf(err, "saving forecast of student %s", res.StudentID)
	}
	return nil
}
