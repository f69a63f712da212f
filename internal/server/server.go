package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/planweave/config"
	"github.com/mohammad-safakhou/planweave/internal/agent"
)

// GeneratePlanRequest is the body of POST /agent/v1/generate_plan.
type GeneratePlanRequest struct {
	Task string `json:"task"`
}

// GeneratePlanResponse carries the generated plans. Status mirrors the
// outcome inside a 200 envelope: 200 with plans, 400 when planning produced
// nothing.
type GeneratePlanResponse struct {
	Status int                       `json:"status"`
	Plan   []agent.DynamicPlanTracer `json:"plan"`
}

// Server exposes the agent over HTTP.
type Server struct {
	e      *echo.Echo
	agent  *agent.Agent
	cfg    *config.Config
	logger *log.Logger
}

// New builds the HTTP layer over an assembled agent.
func New(cfg *config.Config, ag *agent.Agent) *Server {
	s := &Server{
		agent:  ag,
		cfg:    cfg,
		logger: log.New(log.Writer(), "[HTTP] ", log.LstdFlags),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	v1 := e.Group("/agent/v1")
	v1.POST("/generate_plan", s.handleGeneratePlan)
	v1.GET("/status", s.handleStatus)

	s.e = e
	return s
}

// errorHandler logs the full error and answers with structured JSON.
// Internal failures are not leaked to the client.
func (s *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]interface{}{"error": msg})
	}
}

func (s *Server) handleGeneratePlan(c echo.Context) error {
	var req GeneratePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Task) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task is required")
	}

	s.logger.Printf("generate_plan request: %q", req.Task)
	plans, err := s.agent.GeneratePlan(c.Request().Context(), req.Task)
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if len(plans) == 0 {
		return c.JSON(http.StatusOK, GeneratePlanResponse{Status: http.StatusBadRequest, Plan: []agent.DynamicPlanTracer{}})
	}
	return c.JSON(http.StatusOK, GeneratePlanResponse{Status: http.StatusOK, Plan: plans})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "Agent is running"})
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.e }

// Run starts the agent, serves until ctx is canceled and then shuts both
// down in order.
func (s *Server) Run(ctx context.Context) error {
	if err := s.agent.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.e.Start(s.cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		s.agent.Stop()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	if err := s.e.Shutdown(context.Background()); err != nil {
		s.logger.Printf("http shutdown: %v", err)
	}
	s.agent.Stop()
	return nil
}
