package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"enma/internal/requestid"
)

// RequestID tags each request with an X-Request-Id, keeping a client
// supplied one, and stores it in the request context for logging.
func RequestID(gen *requestid.Generator) echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: gen.Next,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(requestid.NewContext(req.Context(), id)))
		},
	})
}
