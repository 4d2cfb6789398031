// Package server wires the application together: database and migrations,
// services, the HTTP endpoint and the background task workers, with
// graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mwodeola/mwodeola-server/internal/cryptox"
	"github.com/mwodeola/mwodeola-server/internal/logging"
	"github.com/mwodeola/mwodeola-server/internal/server/config"
	mwhttp "github.com/mwodeola/mwodeola-server/internal/server/http"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/repomanager"
	"github.com/mwodeola/mwodeola-server/internal/server/services"
	"github.com/mwodeola/mwodeola-server/internal/server/tasks"
	"github.com/mwodeola/mwodeola-server/internal/shared"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	authService    *services.AuthService
	tokenService   *services.TokenService
	accountService *services.AccountService
	taskManager    *tasks.Manager
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	// NewCipher keeps its own copy, so the intermediate buffer is wiped.
	aesKey := []byte(cfg.AESKey)
	cipher, err := cryptox.NewCipher(aesKey)
	shared.WipeByteArray(aesKey)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	tokenService := services.NewTokenService(db, rm, cfg)

	// With a Redis queue configured the lockout sweep runs on asynq workers;
	// otherwise it runs inline on the request path.
	var dispatcher tasks.Dispatcher = tasks.NewSyncDispatcher(tokenService)
	var taskManager *tasks.Manager
	if cfg.QueueRedisURI != "" {
		taskManager, err = tasks.NewManager(cfg.QueueRedisURI, tokenService, logger)
		if err != nil {
			return nil, fmt.Errorf("task queue init error: %w", err)
		}
		dispatcher = taskManager
	}

	return &App{
		config:         cfg,
		logger:         logger,
		db:             db,
		authService:    services.NewAuthService(db, rm, tokenService, dispatcher, cfg),
		tokenService:   tokenService,
		accountService: services.NewAccountService(db, rm, cipher),
		taskManager:    taskManager,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := mwhttp.NewServer(app.config.EndpointAddrHTTP, app.authService, app.tokenService, app.accountService, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startTaskWorkers(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.taskManager.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startTokenPruner periodically removes outstanding/blacklist rows whose
// tokens have expired anyway.
func (app *App) startTokenPruner(ctx context.Context) {
	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.tokenService.DeleteExpired(ctx); err != nil {
				app.logger.Error(ctx, "token prune failed", "error", err.Error())
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.taskManager != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startTaskWorkers(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startTokenPruner(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
