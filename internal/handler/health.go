package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness endpoint used by compose/swarm health checks. It
// never touches the counter store and always answers 200 with a plain text
// "OK".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
