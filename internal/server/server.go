package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/core"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
)

// Server exposes the pipeline over HTTP. Every response body is a
// two-element envelope: the payload followed by status metadata.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	pipeline core.Pipeline
	logger   *log.Logger
}

// New builds a server around an existing pipeline. Tests hand in a stub.
func New(cfg *config.Config, pipeline core.Pipeline, tele *telemetry.Telemetry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = envelope(c, code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	s := &Server{echo: e, cfg: cfg, pipeline: pipeline, logger: baseLogger}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if tele != nil {
		e.GET("/metrics", echo.WrapHandler(tele.Handler()))
	}

	api := e.Group("/api")
	nh := &NewsHandler{Pipeline: pipeline, Timeout: cfg.General.RequestTimeout}
	nh.Register(api)

	return s
}

// Run builds the production pipeline from configuration and serves until the
// listener fails.
func Run(cfg *config.Config) error {
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	orch, err := core.NewOrchestrator(cfg, tele)
	if err != nil {
		return err
	}
	s := New(cfg, orch, tele)
	return s.Start(cfg.Server.Address)
}

func (s *Server) Start(addr string) error {
	s.logger.Printf("listening on %s", addr)
	return s.echo.Start(addr)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// envelope writes the [payload, metadata] response shape.
func envelope(c echo.Context, code int, payload interface{}) error {
	return envelopeWithAdvisory(c, code, payload, "")
}

func envelopeWithAdvisory(c echo.Context, code int, payload interface{}, advisory string) error {
	status := "success"
	if code >= 400 {
		status = "error"
	}
	return c.JSON(code, [2]interface{}{payload, Meta{Status: status, StatusCode: code, Advisory: advisory}})
}

// pipelineError maps the error taxonomy onto HTTP statuses.
func pipelineError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	kind := core.KindOf(err)
	switch kind {
	case core.KindInvalidInput:
		code = http.StatusBadRequest
	case core.KindUpstreamUnavailable:
		code = http.StatusBadGateway
		if isTimeout(err) {
			code = http.StatusGatewayTimeout
		}
	case core.KindAnalysisFailed:
		code = http.StatusInternalServerError
	}
	return envelope(c, code, HTTPError{Error: err.Error(), Kind: string(kind)})
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
