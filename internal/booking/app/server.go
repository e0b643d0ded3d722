// Package app wires the booking server and worker runtimes together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	bookinghttp "github.com/aeroclub/slotbooking/internal/booking/api/http"
	"github.com/aeroclub/slotbooking/internal/booking/service"
	"github.com/aeroclub/slotbooking/internal/booking/storage/sqlite"
	"github.com/aeroclub/slotbooking/internal/platform/config"
	"github.com/aeroclub/slotbooking/internal/platform/logging"
	"github.com/aeroclub/slotbooking/internal/platform/telemetry"
)

// ServerConfig controls the command/query API process.
type ServerConfig struct {
	Env    string `env:"SLOTBOOKING_ENV" envDefault:"development"`
	Port   int    `env:"SLOTBOOKING_HTTP_PORT" envDefault:"8080"`
	DBPath string `env:"SLOTBOOKING_DB_PATH" envDefault:"data/booking.db"`
}

// LoadServerConfig reads the server configuration from the environment.
func LoadServerConfig() (ServerConfig, error) {
	if err := config.LoadDotenv(""); err != nil {
		return ServerConfig{}, err
	}
	var cfg ServerConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

const serverServiceName = "slotbooking-server"

// RunServer starts the HTTP API and blocks until ctx is canceled.
func RunServer(ctx context.Context, cfg ServerConfig) error {
	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.Setup(ctx, serverServiceName)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("shutdown tracing", zap.Error(err))
		}
	}()

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	slots := service.NewSlotService(store, logger)
	router := bookinghttp.NewRouter(bookinghttp.RouterConfig{
		Slots:        bookinghttp.NewSlotHandler(slots, logger),
		Participants: bookinghttp.NewParticipantHandler(store, logger),
		Outbox:       bookinghttp.NewOutboxHandler(store, logger),
		ServiceName:  serverServiceName,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	logger.Info("booking server listening", zap.Int("port", cfg.Port))

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	<-serveErr
	return nil
}

// openStore opens the booking database with the outbox enabled, creating the
// parent directory when needed.
func openStore(dbPath string) (*sqlite.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(dbPath, sqlite.WithOutboxEnabled(true))
	if err != nil {
		return nil, fmt.Errorf("open booking store: %w", err)
	}
	return store, nil
}
