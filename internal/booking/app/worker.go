package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aeroclub/slotbooking/internal/booking/domain/event"
	"github.com/aeroclub/slotbooking/internal/booking/projection"
	"github.com/aeroclub/slotbooking/internal/booking/router"
	"github.com/aeroclub/slotbooking/internal/booking/service"
	"github.com/aeroclub/slotbooking/internal/platform/config"
	"github.com/aeroclub/slotbooking/internal/platform/logging"
	"github.com/aeroclub/slotbooking/internal/platform/telemetry"
)

// WorkerConfig controls the propagation worker process.
type WorkerConfig struct {
	Env          string        `env:"SLOTBOOKING_ENV" envDefault:"development"`
	Port         int           `env:"SLOTBOOKING_WORKER_PORT" envDefault:"8089"`
	DBPath       string        `env:"SLOTBOOKING_DB_PATH" envDefault:"data/booking.db"`
	PollInterval time.Duration `env:"SLOTBOOKING_POLL_INTERVAL" envDefault:"500ms"`
	BatchSize    int           `env:"SLOTBOOKING_OUTBOX_BATCH" envDefault:"100"`
}

// LoadWorkerConfig reads the worker configuration from the environment.
func LoadWorkerConfig() (WorkerConfig, error) {
	if err := config.LoadDotenv(""); err != nil {
		return WorkerConfig{}, err
	}
	var cfg WorkerConfig
	if err := config.ParseEnv(&cfg); err != nil {
		return WorkerConfig{}, err
	}
	return cfg, nil
}

const workerServiceName = "slotbooking-worker"

// RunWorker drains the derived-work outbox until ctx is canceled: slot facts
// go through the router to the participant-slot entity, participant facts go
// through the projector into the read model.
//
// A gRPC health endpoint is served so orchestrators can probe the process.
func RunWorker(ctx context.Context, cfg WorkerConfig) error {
	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.Setup(ctx, workerServiceName)
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

	participants := service.NewParticipantSlotService(store, logger)
	route := router.New(participants, logger)
	project := projection.New(store, logger)

	apply := func(ctx context.Context, evt event.Event) error {
		if evt.Type.IsSlotFact() {
			return route.Route(ctx, evt)
		}
		return project.Apply(ctx, evt)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on worker port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("booking.worker", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	logger.Info("booking worker listening", zap.String("addr", listener.Addr().String()))

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		processed, err := drainOutboxBatch(ctx, store, batchSize, apply)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("process outbox", zap.Error(err))
			continue
		}
		if processed > 0 {
			logger.Debug("processed outbox rows", zap.Int("count", processed))
		}
	}
}

type outboxDrainer interface {
	ProcessOutbox(ctx context.Context, now time.Time, limit int, apply func(context.Context, event.Event) error) (int, error)
}

// drainOutboxBatch processes one batch of due outbox rows inside a span so
// claim latency and batch sizes show up in traces.
func drainOutboxBatch(ctx context.Context, outbox outboxDrainer, batchSize int, apply func(context.Context, event.Event) error) (int, error) {
	ctx, span := otel.Tracer(workerServiceName).Start(ctx, "outbox.drain")
	defer span.End()

	processed, err := outbox.ProcessOutbox(ctx, time.Now().UTC(), batchSize, apply)
	if err != nil {
		span.RecordError(err)
		return processed, err
	}
	span.SetAttributes(attribute.Int("outbox.processed", processed))
	return processed, nil
}
