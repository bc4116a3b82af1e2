package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/eduadmin/core/schema"
)

var (
	contextSchemaKey       = "schema"
	errSchemaNotFoundInCtx = errors.New("collection schema not found in echo.Context")
)

// collectionMiddleware resolves the `:collection` path param against the schema registry.
func collectionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cs, ok := schema.Get(schema.CollectionID(ctx.Param("collection")))
			if !ok {
				return errCollectionNotFound
			}
			ctx.Set(contextSchemaKey, cs)
			return next(ctx)
		}
	}
}

func getContextSchema(ctx echo.Context) (schema.CollectionSchema, error) {
	if cs, ok := ctx.Get(contextSchemaKey).(schema.CollectionSchema); ok {
		return cs, nil
	}
	return schema.CollectionSchema{}, errSchemaNotFoundInCtx
}
