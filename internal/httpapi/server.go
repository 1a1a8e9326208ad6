// Package httpapi exposes the analysis pipeline over a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/RRaffay/nuntium-em/internal/db"
	"github.com/RRaffay/nuntium-em/internal/gdelt"
	"github.com/RRaffay/nuntium-em/internal/globaltime"
	"github.com/RRaffay/nuntium-em/internal/pipeline"
)

// RunService executes one analysis run.
type RunService interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Summary, error)
}

// ArtifactReader loads stored run artifacts.
type ArtifactReader interface {
	LatestRunArtifact(ctx context.Context, countryCode string) (*db.RunArtifact, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	runner    RunService
	artifacts ArtifactReader
	logger    zerolog.Logger
	opts      Options
}

type runRequest struct {
	Country          string `json:"country"`
	Hours            int    `json:"hours"`
	Query            string `json:"query"`
	ArticleObjective string `json:"article_objective,omitempty"`
	ClusterObjective string `json:"cluster_objective,omitempty"`
	SampleSize       int    `json:"sample_size,omitempty"`
	ProcessAll       bool   `json:"process_all,omitempty"`
}

type artifactResponse struct {
	RunID       string          `json:"run_id"`
	Country     string          `json:"country"`
	CountryName string          `json:"country_name"`
	Query       string          `json:"query"`
	Hours       int             `json:"hours"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Artifact    json.RawMessage `json:"artifact"`
}

// NewServer builds the API server. artifacts may be nil when no document
// store is configured; the latest-run endpoint then reports not found.
func NewServer(runner RunService, artifacts ArtifactReader, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8002
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// Runs are synchronous and can spend minutes on embeddings and
	// summarization, so the write timeout has to cover a whole run.
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		runner:    runner,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "httpapi").Logger(),
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.runner == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("analysis api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("analysis api stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/countries", s.handleCountries)
	api.POST("/runs", s.handleRun)
	api.GET("/runs/latest", s.handleLatestRun)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "nuntium",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleCountries(c echo.Context) error {
	return success(c, map[string]any{
		"items": gdelt.Countries(),
	})
}

func (s *Server) handleRun(c echo.Context) error {
	var body runRequest
	if err := c.Bind(&body); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON run request"})
	}

	fieldErrors := map[string]string{}
	country := strings.ToUpper(strings.TrimSpace(body.Country))
	if !gdelt.ValidCountry(country) {
		fieldErrors["country"] = "must be a supported FIPS 10-4 country code"
	}
	if body.Hours < 1 {
		fieldErrors["hours"] = "must be >= 1"
	}
	if strings.TrimSpace(body.Query) == "" {
		fieldErrors["query"] = "is required"
	}
	if body.SampleSize < 0 {
		fieldErrors["sample_size"] = "must be >= 0"
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	summary, err := s.runner.Run(c.Request().Context(), pipeline.Request{
		Country:          country,
		Hours:            body.Hours,
		Query:            body.Query,
		ArticleObjective: body.ArticleObjective,
		ClusterObjective: body.ClusterObjective,
		SampleSize:       body.SampleSize,
		ProcessAll:       body.ProcessAll,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("country", country).Int("hours", body.Hours).Msg("analysis run failed")
		return internalError(c, "Analysis run failed")
	}

	return success(c, summary)
}

func (s *Server) handleLatestRun(c echo.Context) error {
	country := strings.ToUpper(strings.TrimSpace(c.QueryParam("country")))
	if !gdelt.ValidCountry(country) {
		return failValidation(c, map[string]string{"country": "must be a supported FIPS 10-4 country code"})
	}

	if s.artifacts == nil {
		return failNotFound(c, "No run artifacts available")
	}

	artifact, err := s.artifacts.LatestRunArtifact(c.Request().Context(), country)
	if err != nil {
		s.logger.Error().Err(err).Str("country", country).Msg("load latest run artifact failed")
		return internalError(c, "Failed to load run artifact")
	}
	if artifact == nil {
		return failNotFound(c, "No runs recorded for country")
	}

	return success(c, artifactResponse{
		RunID:       artifact.RunID,
		Country:     artifact.CountryCode,
		CountryName: artifact.CountryName,
		Query:       artifact.Query,
		Hours:       artifact.HoursWindow,
		StartedAt:   artifact.StartedAt,
		FinishedAt:  artifact.FinishedAt,
		Artifact:    artifact.Payload,
	})
}
