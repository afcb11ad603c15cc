package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/theelderemo/vrsa/internal/domain"
	"github.com/theelderemo/vrsa/internal/middleware"
)

type appendMessageRequest struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp *time.Time      `json:"timestamp"`
	Settings  json.RawMessage `json:"settings"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Take     domain.Take `json:"take"`
	Variants []string    `json:"variants"`
}

func (h *Handler) listMessages(c echo.Context) error {
	messages, err := h.contexts.Read(c.Request().Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *Handler) appendMessage(c echo.Context) error {
	var req appendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	msg := domain.Message{
		Role:      req.Role,
		Content:   req.Content,
		Timestamp: req.Timestamp,
		Settings:  req.Settings,
	}
	if err := h.contexts.Append(c.Request().Context(), middleware.OwnerID(c), c.Param("id"), msg); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) clearMessages(c echo.Context) error {
	if err := h.contexts.Clear(c.Request().Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listTakes(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	messages := sess.Messages
	if !sess.MemoryEnabled {
		messages = nil
	}
	return c.JSON(http.StatusOK, domain.Reconstruct(messages))
}

// generate appends the prompt as a user message, asks the generator for
// response variants and appends the first variant as the assistant message.
// The remaining variants are returned for the caller to pick from.
func (h *Handler) generate(c echo.Context) error {
	if h.generator == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "generation is not configured")
	}

	var req generateRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt required")
	}

	ctx := c.Request().Context()
	owner := middleware.OwnerID(c)
	id := c.Param("id")

	sess, err := h.sessions.Get(ctx, owner, id)
	if err != nil {
		return httpError(err)
	}

	// The prompt context honours the memory flag: with memory off the model
	// sees only the new prompt.
	history, err := h.contexts.Read(ctx, owner, id)
	if err != nil {
		return httpError(err)
	}

	now := time.Now()
	userMsg := domain.Message{
		Role:      domain.RoleUser,
		Content:   req.Prompt,
		Timestamp: &now,
		Settings:  sess.Settings,
	}
	if err := h.contexts.Append(ctx, owner, id, userMsg); err != nil {
		return httpError(err)
	}

	variants, err := h.generator.Generate(ctx, req.Prompt, history, sess.Settings)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	answered := time.Now()
	assistantMsg := domain.Message{
		Role:      domain.RoleAssistant,
		Content:   variants[0],
		Timestamp: &answered,
		Settings:  sess.Settings,
	}
	if err := h.contexts.Append(ctx, owner, id, assistantMsg); err != nil {
		return httpError(err)
	}

	takes := domain.Reconstruct(append(history, userMsg, assistantMsg))
	return c.JSON(http.StatusOK, generateResponse{
		Take:     takes[len(takes)-1],
		Variants: variants,
	})
}
