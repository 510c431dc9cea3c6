package http

import "github.com/labstack/echo/v4"

// Handler registers routes on the shared Echo instance. The server owns
// middleware and the metrics endpoint; handlers only contribute routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
