package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/aditpras/loan-workflow/internal/application/dispatcher"
	"github.com/aditpras/loan-workflow/internal/application/recorder"
	"github.com/aditpras/loan-workflow/internal/config"
	"github.com/aditpras/loan-workflow/internal/domain/workflow"
	"github.com/aditpras/loan-workflow/internal/export"
	"github.com/aditpras/loan-workflow/internal/gateway"
	httpserver "github.com/aditpras/loan-workflow/internal/interfaces/http"
	"github.com/aditpras/loan-workflow/internal/notify"
	"github.com/aditpras/loan-workflow/internal/orchestrator"
	"github.com/aditpras/loan-workflow/internal/repository"
	"github.com/aditpras/loan-workflow/internal/roles"
	"github.com/aditpras/loan-workflow/internal/sla"
	"github.com/aditpras/loan-workflow/internal/viewmodel"
	"github.com/aditpras/loan-workflow/internal/worker"
	"github.com/aditpras/loan-workflow/pkg/database"
	"github.com/aditpras/loan-workflow/pkg/utils"
)

func main() {
	// Local overrides for development; missing .env is fine
	gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting loan workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create report directory", zap.Error(err))
	}

	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	snapshotRepo := repository.NewSnapshotRepository(db.DB, logger)

	loanService := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   cfg.Gateway.Token,
		Timeout: cfg.Gateway.Timeout,
	}, logger)

	bus := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewSugarAdapter(logger)))
	defer bus.Close()
	publisher := dispatcher.NewPublisher(bus)

	bookkeeper := recorder.New(historyRepo, snapshotRepo, utils.NewSugarAdapter(logger))
	bookkeeper.Attach(publisher)
	defer bookkeeper.Detach()

	roleProvider := buildRoleProvider(cfg)
	notifier := buildNotifier(cfg, logger)

	flow := orchestrator.New(
		loanService,
		workflow.NewGraph(),
		roleProvider,
		notifier,
		publisher,
		utils.NewSugarAdapter(logger),
		orchestrator.WithActor(os.Getenv("WORKFLOW_ACTOR")),
	)

	adapter := viewmodel.NewAdapter(cfg.Display.Locale, cfg.Display.CurrencySymbol)
	tracker := sla.NewTracker()
	stageTargets := cfg.StageTargets()

	reports := export.NewReportWriter(snapshotRepo, adapter, tracker, stageTargets, logger)

	workers := worker.NewManager(logger)
	workers.Register(worker.NewSLAMonitor(snapshotRepo, tracker, notifier, worker.SLAMonitorConfig{
		ScanInterval: cfg.SLA.MonitorInterval,
		StageTargets: stageTargets,
	}, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}
	defer workers.StopAll()

	handlers := httpserver.NewHandlers(
		flow,
		historyRepo,
		adapter,
		reports,
		cfg.Export.OutputDir,
		utils.NewSugarAdapter(logger),
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, utils.NewSugarAdapter(logger))

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	// Give in-flight async broadcasts a moment to drain before Close
	time.Sleep(100 * time.Millisecond)

	logger.Info("Server exited successfully")
}

func buildRoleProvider(cfg *config.Config) roles.Provider {
	if cfg.Roles.Endpoint != "" {
		return roles.NewRemoteProvider(roles.RemoteConfig{
			Endpoint: cfg.Roles.Endpoint,
			Token:    cfg.Gateway.Token,
			CacheTTL: cfg.Roles.CacheTTL,
		})
	}

	static := make([]workflow.Role, 0, len(cfg.Roles.Static))
	for _, r := range cfg.Roles.Static {
		static = append(static, workflow.Role(r))
	}
	return roles.NewStaticProvider(static...)
}

func buildNotifier(cfg *config.Config, logger *zap.Logger) notify.Notifier {
	if cfg.Lark.Enabled {
		return notify.NewLarkNotifier(notify.LarkConfig{
			AppID:         cfg.Lark.AppID,
			AppSecret:     cfg.Lark.AppSecret,
			ReceiveID:     cfg.Lark.ReceiveID,
			ReceiveIDType: cfg.Lark.ReceiveIDType,
		}, logger)
	}
	return notify.NewZapNotifier(logger)
}
