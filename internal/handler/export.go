package handler

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/theelderemo/vrsa/internal/middleware"
	"github.com/theelderemo/vrsa/internal/service"
)

// exportSession renders the session as a portable document. The format query
// parameter selects plain text ("text", the default) or JSON ("json").
func (h *Handler) exportSession(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), middleware.OwnerID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	switch format := c.QueryParam("format"); format {
	case "", "text":
		var buf bytes.Buffer
		if err := service.WriteText(&buf, sess, nil); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.Blob(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
	case "json":
		return c.JSON(http.StatusOK, service.BuildExportDocument(sess))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown export format: "+format)
	}
}
