package academic

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
)

// ErrUnsupportedCollection is returned when no entity type is registered for a collection.
var ErrUnsupportedCollection = errors.New("no entity type for collection")

var factories = map[schema.CollectionID]func() Entity{
	schema.Students:            func() Entity { return new(Student) },
	schema.Teachers:            func() Entity { return new(Teacher) },
	schema.Courses:             func() Entity { return new(Course) },
	schema.Assignments:         func() Entity { return new(Assignment) },
	schema.Attendance:          func() Entity { return new(AttendanceRecord) },
	schema.Enrollments:         func() Entity { return new(Enrollment) },
	schema.Grades:              func() Entity { return new(Grade) },
	schema.Materials:           func() Entity { return new(Material) },
	schema.Quizzes:             func() Entity { return new(Quiz) },
	schema.Submissions:         func() Entity { return new(Submission) },
	schema.TeachingAssignments: func() Entity { return new(TeachingAssignment) },
	schema.MLPredictions:       func() Entity { return new(Prediction) },
}

// Decoder decodes raw records into entities and validates them.
type Decoder struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewDecoder returns a Decoder using the english validation messages.
func NewDecoder() *Decoder {
	validate, translator := core.NewValidator()
	RegisterValidators(validate)
	return &Decoder{validate: validate, translator: translator}
}

// Decode turns a raw record into the entity type registered for the collection and
// validates it. Validation failures are returned as *core.ValidationError.
func (d *Decoder) Decode(id schema.CollectionID, rec core.Record) (Entity, error) {
	newEntity, ok := factories[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedCollection, "%q", id)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record")
	}
	ptr := newEntity()
	if err := json.Unmarshal(raw, ptr); err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "decoding record"))
	}
	if err := d.Validate(ptr); err != nil {
		return nil, err
	}

	// hand out values, not pointers into the decoder's scratch space
	return reflect.ValueOf(ptr).Elem().Interface().(Entity), nil
}

// Validate runs the struct validation of an entity.
func (d *Decoder) Validate(e Entity) error {
	if err := d.validate.Struct(e); err != nil {
		return core.TranslateValidationErrors(err, d.translator)
	}
	return nil
}

// RegisterValidators teaches validate how to look inside the nullable column types.
// A null value validates as the zero value, so `omitempty` skips it.
func RegisterValidators(validate *validator.Validate) {
	validate.RegisterCustomTypeFunc(nullValue,
		null.String{}, null.Float64{}, null.Int{}, null.Int64{}, null.Bool{}, null.Time{},
	)
}

func nullValue(field reflect.Value) interface{} {
	valuer, ok := field.Interface().(driver.Valuer)
	if !ok {
		return nil
	}
	val, err := valuer.Value()
	if err != nil {
		return nil
	}
	return val
}
