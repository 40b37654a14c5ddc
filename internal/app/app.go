package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"cohortetl/internal/config"
	"cohortetl/internal/exporter"
	"cohortetl/internal/infrastructure"
	"cohortetl/internal/operations"
	"cohortetl/internal/warehouse"
	"cohortetl/pkg/contracts"
)

const (
	AppName = "cohortetl"
	// ShutdownTimeout bounds flushing telemetry and closing the warehouse
	ShutdownTimeout = 10 * time.Second
)

// Application wires configuration, telemetry, the optional warehouse and the
// refresh steps for one process
type Application struct {
	Config        *config.Config
	Fs            afero.Fs
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Tracer        *operations.OperationTracer
	Warehouse     *warehouse.DuckDB
}

// NewApplication creates an application reading and writing through fs.
// A nil fs uses the OS filesystem.
func NewApplication(cfg *config.Config, fs afero.Fs, logger *slog.Logger) (*Application, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("cohorts", len(cfg.Cohorts)))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Fs:            fs,
		Logger:        logger,
		OTelProviders: providers,
		Tracer:        tracer,
	}

	if cfg.Output.WarehousePath != "" {
		wh, err := warehouse.Open(cfg.Output.WarehousePath, logger)
		if err != nil {
			_ = providers.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to open warehouse: %w", err)
		}
		app.Warehouse = wh
	}

	return app, nil
}

// Execute performs one refresh in the given mode and pushes the run's metrics
// when a Pushgateway is configured. A push failure is logged, not returned.
func (a *Application) Execute(ctx context.Context, mode operations.RunMode) (*operations.RunResponse, error) {
	var wh exporter.Warehouse
	if a.Warehouse != nil {
		wh = a.Warehouse
	}

	manager := operations.NewManager(operations.NewSteps(a.Config, a.Fs, wh, a.Logger), a.Tracer, a.Logger)
	manager.SetConfig(operations.ForMode(mode))

	ctx = infrastructure.EnsureRunID(ctx)
	state, err := manager.Execute(ctx, operations.RunRequest{Mode: mode}, a.Config)

	if url := a.Config.Telemetry.PushgatewayURL; url != "" {
		if pushErr := infrastructure.PushMetrics(ctx, url, state.ID, nil); pushErr != nil {
			a.Logger.WarnContext(ctx, "Metrics push failed", slog.String("error", pushErr.Error()))
		}
	}

	return operations.Response(state), err
}

// Run executes a refresh, cancelling it on SIGINT or SIGTERM
func (a *Application) Run(mode operations.RunMode) (*operations.RunResponse, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Execute(ctx, mode)
}

// Close releases the warehouse and flushes telemetry
func (a *Application) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var firstErr error
	if a.Warehouse != nil {
		if err := a.Warehouse.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close warehouse: %w", err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	a.Logger.Info("Application stopped")
	return firstErr
}
