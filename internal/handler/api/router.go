package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Router bundles the API handlers behind a single route registrar.
type Router struct {
	feeds *FeedsEchoHandler
	perf  *PerfEchoHandler
}

func NewRouter(feeds *FeedsEchoHandler, perf *PerfEchoHandler) *Router {
	return &Router{feeds: feeds, perf: perf}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.feeds != nil {
		r.feeds.RegisterRoutes(e)
	}
	if r.perf != nil {
		r.perf.RegisterRoutes(e)
	}
}
