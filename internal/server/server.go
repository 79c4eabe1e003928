package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ppiankov/lumify/internal/model"
	"github.com/ppiankov/lumify/internal/pipeline"
	"github.com/ppiankov/lumify/internal/tooltip"
)

const maxRequestBody = "1M"

// New builds the render service. Request and error lines go to logw.
func New(cfg *model.Config, p *pipeline.Pipeline, logw io.Writer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxRequestBody))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogMethod:  true,
		LogURI:     true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fmt.Fprintf(logw, "[HTTP] %d %s %s %v\n", v.Status, v.Method, v.URI, v.Latency.Round(time.Millisecond))
			return nil
		},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		if code >= http.StatusInternalServerError {
			req := c.Request()
			fmt.Fprintf(logw, "[HTTP] %d %s %s: %v\n", code, req.Method, req.URL.Path, err)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	h := &Handler{
		pipeline:      p,
		positioner:    tooltip.NewPositionerFromConfig(cfg.Tooltip),
		defaultTarget: cfg.Widget.CTATarget,
	}
	h.Register(e.Group("/v1"))

	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
