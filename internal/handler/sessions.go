package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/middleware"
	"github.com/theelderemo/vrsa/internal/service"
)

type createSessionRequest struct {
	Name          string          `json:"name"`
	MemoryEnabled bool            `json:"memoryEnabled"`
	ContextWindow int             `json:"contextWindow"`
	Settings      json.RawMessage `json:"settings"`
}

type updateSessionRequest struct {
	Name          *string          `json:"name"`
	MemoryEnabled *bool            `json:"memoryEnabled"`
	Settings      *json.RawMessage `json:"settings"`
}

type sessionResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	MemoryEnabled bool            `json:"memoryEnabled"`
	ContextWindow int             `json:"contextWindow"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		Name:          s.Name,
		MemoryEnabled: s.MemoryEnabled,
		ContextWindow: s.ContextWindow,
		Settings:      s.Settings,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		ExpiresAt:     s.ExpiresAt,
	}
}

func (h *Handler) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	sess, err := h.sessions.Create(c.Request().Context(), service.CreateSessionParams{
		OwnerID:       middleware.OwnerID(c),
		Name:          req.Name,
		MemoryEnabled: req.MemoryEnabled,
		ContextWindow: req.ContextWindow,
		Settings:      req.Settings,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (h *Handler) listSessions(c echo.Context) error {
	sessions, err := h.sessions.ListActive(c.Request().Context(), middleware.OwnerID(c))
	if err != nil {
		return httpError(err)
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) getOrCreateSession(c echo.Context) error {
	sess, err := h.sessions.GetOrCreate(c.Request().Context(), middleware.OwnerID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) getSession(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) updateSession(c echo.Context) error {
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	owner := middleware.OwnerID(c)
	id := c.Param("id")

	if req.Name != nil {
		if err := h.sessions.Rename(ctx, owner, id, *req.Name); err != nil {
			return httpError(err)
		}
	}
	if req.MemoryEnabled != nil {
		if err := h.sessions.SetMemoryEnabled(ctx, owner, id, *req.MemoryEnabled); err != nil {
			return httpError(err)
		}
	}
	if req.Settings != nil {
		if err := h.sessions.UpdateSettings(ctx, owner, id, *req.Settings); err != nil {
			return httpError(err)
		}
	}

	sess, err := h.sessions.Get(ctx, owner, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *Handler) deleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Request().Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deleteAllSessions(c echo.Context) error {
	count, err := h.sessions.DeleteAll(c.Request().Context(), middleware.OwnerID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": count})
}
