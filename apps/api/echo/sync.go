package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/eduadmin/core/dashboard"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/schema"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type syncApi struct {
	engine    *tablesync.Engine
	forecasts *forecast.Service
}

// snapshotResponse is the body of GET /v1/snapshot.
type snapshotResponse struct {
	tablesync.State
	Counts   map[schema.CollectionID]int    `json:"counts"`
	Degraded map[schema.CollectionID]string `json:"degraded"`
	Age      string                         `json:"age,omitempty"`
}

func registerSyncAPI(g *echo.Group, engine *tablesync.Engine, forecasts *forecast.Service) {
	api := syncApi{engine: engine, forecasts: forecasts}

	g.GET("/schemas", api.querySchemas)
	g.GET("/schemas/:collection", api.retrieveSchema, collectionMiddleware())

	g.GET("/snapshot", api.snapshot)
	g.POST("/refresh", api.refresh)
	g.GET("/dashboard", api.dashboard)
}

// Handlers

func (api *syncApi) querySchemas(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, schema.All())
}

func (api *syncApi) retrieveSchema(ctx echo.Context) error {
	cs, err := getContextSchema(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *syncApi) snapshot(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.snapshotResponse())
}

// refresh is the retry affordance after a failed sync.
func (api *syncApi) refresh(ctx echo.Context) error {
	if _, err := api.engine.RefreshAll(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.snapshotResponse())
}

func (api *syncApi) dashboard(ctx echo.Context) error {
	snap := api.engine.Snapshot()
	var atRisk int
	for _, sf := range forecast.Overview(snap) {
		if sf.AtRisk {
			atRisk++
		}
	}
	return ctx.JSON(http.StatusOK, dashboard.Compute(snap, atRisk))
}

func (api *syncApi) snapshotResponse() snapshotResponse {
	snap := api.engine.Snapshot()
	res := snapshotResponse{
		State:    api.engine.State(),
		Counts:   snap.Counts(),
		Degraded: snap.Degraded(),
	}
	if !snap.RefreshedAt().IsZero() {
		res.Age = time.Since(snap.RefreshedAt()).Truncate(time.Second).String()
	}
	return res
}
