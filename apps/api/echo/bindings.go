package echoapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

var (
	orderingParam = "ordering"
	searchParam   = "search"
	confirmParam  = "confirm"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=-cgpa,name`: a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Validate rejects ordering fields that are not columns of cs.
func (ord *Ordering) Validate(cs schema.CollectionSchema) error {
	var flds []core.FieldError
	for _, o := range ord.Orderings {
		if !cs.IsKnownField(o.Field) {
			flds = append(flds, core.FieldError{Field: orderingParam, Error: "unknown field " + strconv.Quote(o.Field)})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func bindQuery(ctx echo.Context, cs schema.CollectionSchema) (tablesync.Query, error) {
	var ord Ordering
	ord.Bind(ctx)
	if err := ord.Validate(cs); err != nil {
		return tablesync.Query{}, err
	}
	return tablesync.Query{
		Search:   core.SearchTerm(ctx.QueryParam(searchParam)),
		Ordering: ord.Orderings,
	}, nil
}

// bindRecord decodes the request body into a record. Numbers stay float64 like every
// other record value.
func bindRecord(ctx echo.Context) (core.Record, error) {
	var rec core.Record
	if err := json.NewDecoder(ctx.Request().Body).Decode(&rec); err != nil || rec == nil {
		return nil, errInvalidRequestBody
	}
	return rec, nil
}

func confirmed(ctx echo.Context) bool {
	ok, _ := strconv.ParseBool(ctx.QueryParam(confirmParam))
	return ok
}
