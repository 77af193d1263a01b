// Package server initializes and runs the game backend. It wires the
// connection manager, repositories, and services, starts the HTTP endpoint,
// and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wakeemil/gamebase/internal/logging"
	"github.com/wakeemil/gamebase/internal/server/config"
	"github.com/wakeemil/gamebase/internal/server/db"
	"github.com/wakeemil/gamebase/internal/server/httpapi"
	"github.com/wakeemil/gamebase/internal/server/repositories/repomanager"
	"github.com/wakeemil/gamebase/internal/server/services"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	manager        *db.Manager
	userService    *services.UserService
	versionService *services.VersionService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	m, err := db.Open(c.DatabaseDSN, c.PoolConnMaxLifetime, c.PoolAcquireTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	us := services.NewUserService(m, rm, logger)
	vs := services.NewVersionService(m, rm, logger)

	return &App{
		config:         c,
		logger:         logger,
		manager:        m,
		userService:    us,
		versionService: vs,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.userService, app.versionService,
		app.config.SecretKey, app.config.AccessTokenValidityDuration)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	// Schema and bootstrap seed must be in place before traffic.
	if err := app.manager.Init(ctx, repomanager.NewPostgresRepositoryManager()); err != nil {
		return fmt.Errorf("store init error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "app stopped")
	return nil
}
