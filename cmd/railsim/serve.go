package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/railtycoon/server/internal/broadcast"
	"github.com/railtycoon/server/internal/broadcast/websocket"
	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/dispatcher"
	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/engine"
	"github.com/railtycoon/server/internal/geodata"
	"github.com/railtycoon/server/internal/httpapi"
	"github.com/railtycoon/server/internal/influx"
	"github.com/railtycoon/server/internal/logging"
	"github.com/railtycoon/server/internal/monitor"
	intOtel "github.com/railtycoon/server/internal/otel"
	"github.com/railtycoon/server/internal/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root)
		},
	}
}

func serve(ctx context.Context, root *rootOptions) error {
	sessionStart := time.Now()

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, AppName, sessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	level := viper.GetString("logLevel")
	slogManager := logging.NewSlogManager()

	// OTel first so the logging setup can include its provider
	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(otelCfg, logFile)
	if err != nil {
		return fmt.Errorf("initializing OTel provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = slogManager.Flush(shutdownCtx)
		_ = otelProvider.Shutdown(shutdownCtx)
	}()

	var logOpts []logging.Option
	var gelfErr error
	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGELFWriter(viper.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			logOpts = append(logOpts, logging.WithGELF(w, ""))
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	slogManager.Setup(io.MultiWriter(os.Stdout, logFile), level, otelLogProvider, logOpts...)
	logger := slogManager.Logger()
	slog.SetDefault(logger)

	logger.Info("Starting railsim", "version", Version, "buildDate", BuildDate, "logFile", logFilePath)
	if root.configErr != nil {
		logger.Warn("Failed to load config, using defaults!", "error", root.configErr)
	}
	if gelfErr != nil {
		logger.Error("Graylog output disabled", "error", gelfErr)
	}

	zl := connectorLogger(logFile, level)

	// storage
	storageCfg := config.GetStorageConfig()
	if storageCfg.Memory.OutputDir != "" {
		if err := os.MkdirAll(storageCfg.Memory.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	store, dbm, err := openStorage(storageCfg, logger, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	// metrics sink
	var metrics engine.MetricsSink
	influxManager := influx.NewManager(config.GetInfluxConfig(), zl.With().Str("component", "influx").Logger(),
		logging.LogFilePath(logsDir, AppName+"_influx", sessionStart)+".gz")
	switch err := influxManager.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		logger.Error("InfluxDB unavailable, tick metrics disabled", "error", err)
	default:
		metrics = influxManager
		defer influxManager.Close()
	}

	// broadcast
	var publisher broadcast.Publisher = broadcast.Nop{}
	if bc := config.GetBroadcastConfig(); bc.Enabled {
		wsp := websocket.New(websocket.Config{
			URL:      bc.URL,
			Secret:   bc.Secret,
			ServerID: uuid.NewString(),
			Version:  Version,
		}, logger)
		if err := wsp.Init(); err != nil {
			logger.Error("Relay unreachable, broadcasting disabled", "url", bc.URL, "error", err)
		} else {
			publisher = wsp
			logger.Info("Broadcasting to relay", "url", bc.URL)
		}
	}
	defer publisher.Close()

	// population density
	var density geodata.Source = geodata.Fixed(geodata.DefaultDensity)
	if gc := config.GetGeodataConfig(); gc.Enabled {
		client := geodata.New(gc.URL, gc.Timeout)
		if err := client.Healthcheck(ctx); err != nil {
			logger.Warn("Density service healthcheck failed, lookups fall back to the default", "url", gc.URL, "error", err)
		}
		density = client
	}

	// world and engine
	simCfg := config.GetSimConfig()
	world := sim.New(sim.Config{
		TimeScale:      simCfg.TimeScale,
		StartTime:      simCfg.StartTime,
		LoanAnnualRate: simCfg.LoanAnnualRate,
		Terrain:        economy.NewSyntheticTerrain(rand.New(rand.NewSource(sessionStart.UnixNano()))),
		Logger:         logger,
	})

	eng, err := engine.New(engine.Dependencies{
		World:     world,
		Publisher: publisher,
		Storage:   store,
		Metrics:   metrics,
		Density:   density,
		Logger:    logger,
	}, engine.OptionsFromConfig(simCfg))
	if err != nil {
		return err
	}
	if err := eng.Restore(ctx); err != nil {
		return err
	}
	slogManager.SetContextProvider(eng.LogAttrs)

	eventDispatcher, err := dispatcher.New(logger)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	eng.RegisterHandlers(eventDispatcher)
	logger.Info("Command handlers registered", "commands", len(eventDispatcher.Commands()))

	// status monitor
	var monitorDB *gorm.DB
	if dbm != nil {
		monitorDB = dbm.DB
	}
	monitorService := monitor.NewService(monitor.Dependencies{
		DB:     monitorDB,
		Logger: logger,
		Source: eng,
		Dir:    logsDir,
	})
	if err := monitorService.Start(); err != nil {
		logger.Warn("Status monitor not started", "error", err)
	}
	defer monitorService.Stop()

	// run
	engineCtx, stopEngine := context.WithCancel(ctx)
	defer stopEngine()
	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(engineCtx) }()

	httpCfg := config.GetHTTPConfig()
	srv := &http.Server{
		Addr:              httpCfg.Listen,
		Handler:           httpapi.New(eventDispatcher, logger, 0),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpDone := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", httpCfg.Listen)
		httpDone <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-httpDone:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}

	stopEngine()
	if err := <-engineDone; err != nil {
		logger.Error("Engine stopped with error", "error", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
