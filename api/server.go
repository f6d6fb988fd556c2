package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// TokenHeader carries the shared secret when API_TOKEN is configured
const TokenHeader = "X-Wager-Token"

// Server is the HTTP front for the game server plugin and operators
type Server struct {
	echo *echo.Echo
	port int
}

// NewServer creates the echo instance. An empty token disables the shared secret check.
func NewServer(port int, token string, handlers *Handlers) *Server {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${id} ${remote_ip} ${status} ${method} ${path} ${error} ${latency_human} ${bytes_in} ${bytes_out}\n",
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiGroup := e.Group("/api")
	if token != "" {
		apiGroup.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:" + TokenHeader,
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
			},
			ErrorHandler: func(err error, c echo.Context) error {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			},
		}))
	}
	handlers.Register(apiGroup)

	return &Server{
		echo: e,
		port: port,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	log.WithField("port", s.port).Info("Starting HTTP API")
	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown echo server: %w", err)
	}

	return nil
}
