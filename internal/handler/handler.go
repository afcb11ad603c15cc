// Package handler exposes the session memory API over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/middleware"
	"github.com/theelderemo/vrsa/internal/service"
)

type Handler struct {
	sessions  *service.SessionService
	contexts  *service.ContextService
	generator service.Generator
}

type Deps struct {
	Sessions *service.SessionService
	Contexts *service.ContextService
	// Generator may be nil; the generate endpoint then reports unavailable.
	Generator service.Generator
}

func New(deps Deps) *Handler {
	return &Handler{
		sessions:  deps.Sessions,
		contexts:  deps.Contexts,
		generator: deps.Generator,
	}
}

// RegisterRoutes registers the API routes on the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.health)

	g := e.Group("/api/v1", middleware.Owner())
	g.POST("/sessions", h.createSession)
	g.GET("/sessions", h.listSessions)
	g.POST("/sessions/active", h.getOrCreateSession)
	g.DELETE("/sessions", h.deleteAllSessions)
	g.GET("/sessions/:id", h.getSession)
	g.PATCH("/sessions/:id", h.updateSession)
	g.DELETE("/sessions/:id", h.deleteSession)
	g.GET("/sessions/:id/messages", h.listMessages)
	g.POST("/sessions/:id/messages", h.appendMessage)
	g.DELETE("/sessions/:id/messages", h.clearMessages)
	g.GET("/sessions/:id/takes", h.listTakes)
	g.POST("/sessions/:id/generate", h.generate)
	g.GET("/sessions/:id/export", h.exportSession)
}

func (h *Handler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrOwnerRequired),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrInvalidContextWindow),
		errors.Is(err, domain.ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
