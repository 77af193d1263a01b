// Package httpapi exposes the game client endpoints over HTTP. It is a
// thin consumer of the services layer: all storage policy (scopes, retry,
// the active-version invariant) lives below it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/services"
)

type Server struct {
	echo          *echo.Echo
	logger        logging.Logger
	users         *services.UserService
	versions      *services.VersionService
	addr          string
	secretKey     []byte
	tokenValidity time.Duration
}

func NewServer(addr string, logger logging.Logger, us *services.UserService, vs *services.VersionService, secretKey string, tokenValidity time.Duration) *Server {
	s := &Server{
		echo:          echo.New(),
		logger:        logger,
		users:         us,
		versions:      vs,
		addr:          addr,
		secretKey:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler
	s.echo.Use(s.requestLogger)

	s.echo.GET("/", s.handleRoot)
	s.echo.POST("/register", s.handleRegister)
	s.echo.POST("/login", s.handleLogin)
	s.echo.GET("/version", s.handleVersion)

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// requestLogger tags every request with a UUID and logs method, path,
// status and latency after the handler returns.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := uuid.NewString()
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info(c.Request().Context(), "http request",
			"request_id", requestID,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start).String(),
		)
		return nil
	}
}

// errorHandler renders every unhandled error as the JSON error envelope the
// game client expects. Internal details stay in the log.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "error", err.Error())
	}

	if writeErr := c.JSON(code, errorResponse{Status: "error", Message: message}); writeErr != nil {
		s.logger.Error(c.Request().Context(), "error response write failed", "error", writeErr.Error())
	}
}
