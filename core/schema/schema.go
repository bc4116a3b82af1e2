// Package schema is the declarative description of every collection synced with the
// remote store: identifier, primary key and columns.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core"
)

// CollectionID names a collection (a table in the remote store).
type CollectionID string

func (id CollectionID) String() string { return string(id) }

// ColumnType is the closed set of value types a column can hold.
type ColumnType int

const (
	Text ColumnType = iota + 1
	Number
	Date
	Select
	JSON
)

func (ct ColumnType) String() string {
	switch ct {
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	case Select:
		return "select"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

func (ct ColumnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ct.String())
}

// Column describes a single field of a collection.
type Column struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Type    ColumnType `json:"type"`
	Options []string   `json:"options,omitempty"`
	// Hidden columns are part of the record but not rendered as table columns.
	Hidden bool `json:"hidden,omitempty"`
}

var errInvalidOption = errors.New("value is not one of the allowed options")

// Coerce converts an input value (typically coming from a form or a JSON body)
// into the JSON value stored for this column. nil passes through.
func (c Column) Coerce(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Type {
	case Text:
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val), nil
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64), nil
		case json.Number:
			return val.String(), nil
		}
		return nil, errors.Errorf("expected text, got %T", v)
	case Number:
		switch val := v.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case json.Number:
			return val.Float64()
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Errorf("expected a number, got %q", val)
			}
			return f, nil
		}
		return nil, errors.Errorf("expected a number, got %T", v)
	case Date:
		switch val := v.(type) {
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				return nil, nil
			}
			if _, err := time.Parse(core.DateLayout, s); err == nil {
				return s, nil
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, errors.Errorf("expected a date (YYYY-MM-DD), got %q", val)
			}
			return t.UTC().Format(core.DateLayout), nil
		case time.Time:
			return val.UTC().Format(core.DateLayout), nil
		}
		return nil, errors.Errorf("expected a date, got %T", v)
	case Select:
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("expected one of %v, got %T", c.Options, v)
		}
		s = strings.TrimSpace(s)
		for _, opt := range c.Options {
			if s == opt {
				return s, nil
			}
		}
		return nil, errors.Wrapf(errInvalidOption, "%q not in %v", s, c.Options)
	case JSON:
		switch val := v.(type) {
		case string:
			// forms send JSON columns as text
			var decoded interface{}
			if err := json.Unmarshal([]byte(val), &decoded); err != nil {
				return nil, errors.Wrap(err, "expected a JSON document")
			}
			return decoded, nil
		default:
			return val, nil
		}
	}
	panic(fmt.Sprintf("schema: unhandled column type %d", c.Type))
}

// CollectionSchema describes a collection. It is immutable once registered.
type CollectionSchema struct {
	ID         CollectionID `json:"id"`
	Label      string       `json:"label"`
	PrimaryKey string       `json:"primary_key"`
	Columns    []Column     `json:"columns"`
}

// Column returns the column with the given key.
func (cs CollectionSchema) Column(key string) (Column, bool) {
	for _, c := range cs.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// VisibleColumns returns the columns meant to be rendered as table columns.
func (cs CollectionSchema) VisibleColumns() []Column {
	cols := make([]Column, 0, len(cs.Columns))
	for _, c := range cs.Columns {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}
	return cols
}

// HasSurrogateKey reports whether the primary key is assigned by the store rather than
// being one of the declared columns.
func (cs CollectionSchema) HasSurrogateKey() bool {
	_, ok := cs.Column(cs.PrimaryKey)
	return !ok
}

// IsKnownField reports whether key is the primary key or one of the columns.
func (cs CollectionSchema) IsKnownField(key string) bool {
	if key == cs.PrimaryKey {
		return true
	}
	_, ok := cs.Column(key)
	return ok
}

// PrimaryKeyValue returns the record's primary key value (nil and false when absent or empty).
func (cs CollectionSchema) PrimaryKeyValue(rec core.Record) (interface{}, bool) {
	v, ok := rec[cs.PrimaryKey]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// Normalize coerces every column value of rec according to its column type.
// Unknown keys are reported as field errors.
func (cs CollectionSchema) Normalize(rec core.Record) (core.Record, error) {
	out := make(core.Record, len(rec))
	var flds []core.FieldError
	for k, v := range rec {
		if k == cs.PrimaryKey && cs.HasSurrogateKey() {
			out[k] = v
			continue
		}
		col, ok := cs.Column(k)
		if !ok {
			flds = append(flds, core.FieldError{Field: k, Error: "unknown column"})
			continue
		}
		cv, err := col.Coerce(v)
		if err != nil {
			flds = append(flds, core.FieldError{Field: k, Error: err.Error()})
			continue
		}
		out[k] = cv
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(nil, flds...)
	}
	return out, nil
}

// verify checks the registry invariants for a single schema.
func (cs CollectionSchema) verify() error {
	if cs.ID == "" || cs.PrimaryKey == "" {
		return errors.Errorf("schema %q: id and primary key are required", cs.ID)
	}
	if cs.HasSurrogateKey() && cs.PrimaryKey != SurrogateKey {
		return errors.Errorf("schema %q: primary key %q is neither a column nor %q", cs.ID, cs.PrimaryKey, SurrogateKey)
	}
	seen := make(map[string]bool, len(cs.Columns))
	for _, c := range cs.Columns {
		if seen[c.Key] {
			return errors.Errorf("schema %q: duplicate column %q", cs.ID, c.Key)
		}
		seen[c.Key] = true
		if c.Type < Text || c.Type > JSON {
			return errors.Errorf("schema %q: column %q has no type", cs.ID, c.Key)
		}
		if c.Type == Select && len(c.Options) == 0 {
			return errors.Errorf("schema %q: select column %q has no options", cs.ID, c.Key)
		}
	}
	return nil
}
