package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/pipeline"
	"github.com/ppiankov/lumify/internal/render"
	"github.com/ppiankov/lumify/internal/tooltip"
)

// Handler serves rendering, placement and search endpoints
type Handler struct {
	pipeline      *pipeline.Pipeline
	positioner    *tooltip.Positioner
	defaultTarget string
}

// Register mounts the endpoints under g
func (h *Handler) Register(g *echo.Group) {
	g.POST("/render", h.render)
	g.POST("/place", h.place)
	g.POST("/search", h.search)
	g.POST("/answer", h.answer)
	g.GET("/popular", h.popular)
}

// RenderRequest formats raw answer text, or a complete response when
// Response is set
type RenderRequest struct {
	Text     string                `json:"text"`
	Sources  []model.Source        `json:"sources"`
	Target   string                `json:"target,omitempty"`
	Query    string                `json:"query,omitempty"`
	Response *model.SearchResponse `json:"response,omitempty"`
}

// RenderResponse is the formatted fragment and the chips found in it
type RenderResponse struct {
	HTML      string          `json:"html"`
	Citations []render.Anchor `json:"citations"`
}

func (h *Handler) render(c echo.Context) error {
	var req RenderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}

	if req.Response != nil {
		return c.JSON(http.StatusOK, h.pipeline.Render(c.Request().Context(), req.Query, req.Response))
	}

	target := model.ResolveLinkTarget(req.Target, h.defaultTarget)
	html := h.pipeline.Formatter().Format(req.Text, req.Sources, target)
	citations, err := render.Citations(html)
	if err != nil {
		return err
	}
	if citations == nil {
		citations = []render.Anchor{}
	}
	return c.JSON(http.StatusOK, RenderResponse{HTML: html, Citations: citations})
}

// PlaceRequest carries the measured boxes for one tooltip
type PlaceRequest struct {
	Geometry tooltip.Geometry `json:"geometry"`
}

// PlaceResponse is the reset style followed by the final placement
type PlaceResponse struct {
	Reset     tooltip.Style     `json:"reset"`
	Placement tooltip.Placement `json:"placement"`
}

func (h *Handler) place(c echo.Context) error {
	var req PlaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}

	pending := h.positioner.Reset()
	placement, err := h.positioner.MeasureAndPlace(pending, req.Geometry)
	if err != nil {
		if errors.Is(err, tooltip.ErrInvalidGeometry) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, PlaceResponse{Reset: pending.Style, Placement: placement})
}

// SearchRequest is a visitor query
type SearchRequest struct {
	Query   string         `json:"query"`
	Sources []model.Source `json:"sources,omitempty"` // Answer only
}

// search always answers 200 with a rendered result; failures carry the
// error block in html and the message in error
func (h *Handler) search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return c.JSON(http.StatusOK, h.pipeline.Run(c.Request().Context(), req.Query))
}

func (h *Handler) answer(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	return c.JSON(http.StatusOK, h.pipeline.Answer(c.Request().Context(), req.Query, req.Sources))
}

func (h *Handler) popular(c echo.Context) error {
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))

	result, err := h.pipeline.Popular(c.Request().Context(), refresh)
	if errors.Is(err, pipeline.ErrPopularDisabled) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
