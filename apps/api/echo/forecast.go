package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/eduadmin/core/academic"
	"github.com/trezcool/eduadmin/core/forecast"
	"github.com/trezcool/eduadmin/core/tablesync"
)

type forecastApi struct {
	engine *tablesync.Engine
	svc    *forecast.Service
}

func registerForecastAPI(g *echo.Group, engine *tablesync.Engine, svc *forecast.Service) {
	api := forecastApi{engine: engine, svc: svc}

	g.GET("/forecasts", api.query)

	sg := g.Group("/students/:id")
	sg.GET("/forecast", api.retrieve)
	sg.POST("/forecast", api.create)
}

// Handlers

func (api *forecastApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, forecast.Overview(api.engine.Snapshot()))
}

func (api *forecastApi) retrieve(ctx echo.Context) error {
	snap := api.engine.Snapshot()
	id := academic.ID(ctx.Param("id"))
	if _, ok := snap.Student(id); !ok {
		return forecast.ErrStudentNotFound
	}
	pred, ok := forecast.Latest(snap, id)
	if !ok {
		return errNoForecastForStudent
	}
	return ctx.JSON(http.StatusOK, pred)
}

// create runs a forecast. A second request for the same student while one runs gets a 409.
func (api *forecastApi) create(ctx echo.Context) error {
	res, err := api.svc.TryRun(ctx.Request().Context(), academic.ID(ctx.Param("id")))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}
