package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pulsed/pulsed/internal/protocol"
)

func (s *Server) registerRoutes() {
	v1 := s.Echo.Group("/api/v1")

	v1.POST("/login", s.handleLogin)
	v1.POST("/logout", s.handleLogout)
	v1.GET("/metrics", s.metricsHandler())

	core := v1.Group("", s.marshalToLoop())
	core.GET("/server-info", s.handleServerInfo)
	core.GET("/sinks", s.handleListSinks)
	core.GET("/sinks/:id", s.handleGetSink)
	core.GET("/sources", s.handleListSources)
	core.GET("/clients", s.handleListClients)
	core.GET("/modules", s.handleListModules)

	mutating := core.Group("", s.requireSession)
	mutating.POST("/clients/:id/kill", s.handleKillClient)
	mutating.POST("/sinks/:id/volume", s.handleSetSinkVolume)
	mutating.POST("/sink-inputs/:id/volume", s.handleSetSinkInputVolume)
	mutating.POST("/modules", s.handleLoadModule)
	mutating.DELETE("/modules/:id", s.handleUnloadModule)
}

func parseIndex(c echo.Context) (uint32, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint32(n), err
}

// errStatus maps a Dispatcher error onto an HTTP status the way
// internal/api/v2's error handling collapses internal/errors categories
// onto a status code, but keyed off the already-computed wire taxonomy
// so httpapi never needs its own copy of the category switch.
func errStatus(err error) int {
	switch protocol.MapError(err) {
	case protocol.ErrNoEntity:
 return http.StatusNotFound
	case protocol.ErrInvalid, protocol.ErrExist:
 return http.StatusBadRequest
	case protocol.ErrAccess, protocol.ErrNoAuthKey:
 return http.StatusForbidden
	default:
 return http.StatusInternalServerError
	}
}

func (s *Server) handleServerInfo(c echo.Context) error {
	info := s.dispatcher.GetServerInfo(s.cfg.DefaultSpec)
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleListSinks(c echo.Context) error {
	sinks := s.dispatcher.ListSinks()
	out := make([]sinkDTO, 0, len(sinks))
	for _, sink := range sinks {
 out = append(out, newSinkDTO(sink))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetSink(c echo.Context) error {
	sink, err := s.dispatcher.GetSinkInfo(c.Param("id"))
	if err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, newSinkDTO(sink))
}

func (s *Server) handleListSources(c echo.Context) error {
	sources := s.dispatcher.ListSources()
	out := make([]sourceDTO, 0, len(sources))
	for _, src := range sources {
 out = append(out, newSourceDTO(src))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListClients(c echo.Context) error {
	clients := s.dispatcher.ListClients()
	out := make([]clientDTO, 0, len(clients))
	for _, cl := range clients {
 out = append(out, newClientDTO(cl))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListModules(c echo.Context) error {
	modules := s.dispatcher.ListModules()
	out := make([]moduleDTO, 0, len(modules))
	for _, m := range modules {
 out = append(out, newModuleDTO(m))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleKillClient(c echo.Context) error {
	idx, err := parseIndex(c)
	if err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
	}
	if err := s.dispatcher.KillClient(idx); err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetSinkVolume(c echo.Context) error {
	var req volumeRequest
	if err := c.Bind(&req); err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	if err := s.dispatcher.SetSinkVolume(c.Param("id"), req.toCVolume()); err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetSinkInputVolume(c echo.Context) error {
	idx, err := parseIndex(c)
	if err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
	}
	var req volumeRequest
	if err := c.Bind(&req); err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	if err := s.dispatcher.SetSinkInputVolume(idx, req.toCVolume()); err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLoadModule(c echo.Context) error {
	var req loadModuleRequest
	if err := c.Bind(&req); err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request"})
	}
	idx, err := s.dispatcher.LoadModule(req.Name, req.Args)
	if err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]uint32{"index": idx})
}

func (s *Server) handleUnloadModule(c echo.Context) error {
	idx, err := parseIndex(c)
	if err != nil {
 return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid id"})
	}
	if err := s.dispatcher.UnloadModule(idx); err != nil {
 return c.JSON(errStatus(err), errorResponse{Error: err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
