package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/eduadmin/core"
	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type collectionApi struct {
	engine *tablesync.Engine
}

type (
	listResponse struct {
		Collection schema.CollectionID `json:"collection"`
		Generation uint64              `json:"generation"`
		Degraded   string              `json:"degraded,omitempty"`
		Count      int                 `json:"count"`
		Records    []core.Record       `json:"records"`
	}

	mutationResponse struct {
		Collection schema.CollectionID `json:"collection"`
		Generation uint64              `json:"generation"`
		Status     tablesync.Status    `json:"status"`
		Count      int                 `json:"count"`
	}
)

func registerCollectionAPI(g *echo.Group, engine *tablesync.Engine) {
	api := collectionApi{engine: engine}

	cg := g.Group("/collections/:collection", collectionMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	cg.PUT("/:pk", api.update)
	cg.DELETE("/:pk", api.destroy)
}

// Handlers

func (api *collectionApi) query(ctx echo.Context) error {
	cs, err := getContextSchema(ctx)
	if err != nil {
		return err
	}
	q, err := bindQuery(ctx, cs)
	if err != nil {
		return err
	}

	snap := api.engine.Snapshot()
	recs := snap.Query(cs, q)
	return ctx.JSON(http.StatusOK, listResponse{
		Collection: cs.ID,
		Generation: snap.Generation(),
		Degraded:   snap.Degraded()[cs.ID],
		Count:      len(recs),
		Records:    recs,
	})
}

func (api *collectionApi) create(ctx echo.Context) error {
	cs, err := getContextSchema(ctx)
	if err != nil {
		return err
	}
	rec, err := bindRecord(ctx)
	if err != nil {
		return err
	}

	if err = api.engine.Create(ctx.Request().Context(), cs.ID, rec); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.result(cs.ID))
}

func (api *collectionApi) update(ctx echo.Context) error {
	cs, err := getContextSchema(ctx)
	if err != nil {
		return err
	}
	rec, err := bindRecord(ctx)
	if err != nil {
		return err
	}

	pk := api.primaryKey(cs, ctx.Param("pk"))
	if bodyPK, ok := cs.PrimaryKeyValue(rec); ok && academic.KeyOf(bodyPK) != academic.KeyOf(pk) {
		return errPrimaryKeyMismatch
	}
	rec[cs.PrimaryKey] = pk

	if err = api.engine.Update(ctx.Request().Context(), cs.ID, rec); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.result(cs.ID))
}

func (api *collectionApi) destroy(ctx echo.Context) error {
	cs, err := getContextSchema(ctx)
	if err != nil {
		return err
	}
	if !confirmed(ctx) {
		return errDeleteNotConfirmed
	}

	pk := api.primaryKey(cs, ctx.Param("pk"))
	if err = api.engine.Delete(ctx.Request().Context(), cs.ID, pk); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// primaryKey returns the key value as stored in the snapshot (numbers stay numbers),
// falling back to the raw path param for rows the snapshot does not know.
func (api *collectionApi) primaryKey(cs schema.CollectionSchema, param string) interface{} {
	if rec, _, ok := api.engine.Snapshot().Find(cs.ID, academic.ID(param)); ok {
		if v, found := rec[cs.PrimaryKey]; found && v != nil {
			return v
		}
	}
	return param
}

func (api *collectionApi) result(id schema.CollectionID) mutationResponse {
	st := api.engine.State()
	return mutationResponse{
		Collection: id,
		Generation: st.Generation,
		Status:     st.Status,
		Count:      api.engine.Snapshot().Len(id),
	}
}
