package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// Convenience keyword names the five GET endpoints below wrap (spec
// §6.2: "convenience calls to specific keywords"). Callers that need
// different parameters use POST /v1/sessions/{id}/action directly.
const (
	keywordScreenshot    = "take_screenshot"
	keywordPageSource    = "get_page_source"
	keywordElements      = "get_elements"
	keywordScreenElement = "get_screen_elements"
)

func (s *Server) screenshotHandler(c *echo.Context) error {
	return s.convenienceHandler(c, keywordScreenshot)
}

func (s *Server) sourceHandler(c *echo.Context) error {
	return s.convenienceHandler(c, keywordPageSource)
}

func (s *Server) elementsHandler(c *echo.Context) error {
	return s.convenienceHandler(c, keywordElements)
}

func (s *Server) screenElementsHandler(c *echo.Context) error {
	return s.convenienceHandler(c, keywordScreenElement)
}

func (s *Server) convenienceHandler(c *echo.Context, keyword string) error {
	sess, err := s.sessionFromPath(c)
	if err != nil {
		return mapError(err)
	}
	return s.invokeKeyword(c, sess, keyword, nil)
}

// driverIDHandler handles GET /v1/sessions/{id}/driver-id. Unlike the
// other four convenience endpoints this reads the primary driver's own
// identity directly off the session's registry rather than dispatching
// through the keyword registry, since no keyword call is needed to
// answer it.
func (s *Server) driverIDHandler(c *echo.Context) error {
	sess, err := s.sessionFromPath(c)
	if err != nil {
		return mapError(err)
	}

	drv, ok := sess.Registry.PrimaryDriver()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session has no driver")
	}
	return c.JSON(http.StatusOK, map[string]string{"driver_id": drv.ID()})
}
