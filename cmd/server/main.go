package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sociaWs/internal/config"
	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/application/usecase"
	"sociaWs/internal/modules/gateway/domain"
	"sociaWs/internal/modules/gateway/infrastructure"
	transport "sociaWs/internal/modules/gateway/interface"
	"sociaWs/internal/platform/broker"
	"sociaWs/internal/platform/metrics"
	"sociaWs/internal/shared/auth"
	"sociaWs/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	instanceID := uuid.NewString()
	slog.Info("gateway starting",
		slog.String("instanceId", instanceID),
		slog.Any("namespaces", domain.Namespaces()),
		slog.Any("kafkaBrokers", cfg.Kafka.Brokers),
	)

	connections := infrastructure.NewConnectionRegistry()
	rooms := infrastructure.NewRoomRegistry()

	var publisher port.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = broker.NewBridgePublisher(cfg.Kafka.Brokers, cfg.Kafka.BridgeTopic)
	}
	dispatcher := infrastructure.NewDispatcher(connections, rooms, publisher, instanceID)

	presence := usecase.NewPresenceTracker(dispatcher, cfg.Gateway.PresenceRetention)
	gw := usecase.NewGateway(connections, rooms, presence, dispatcher, usecase.GatewayConfig{
		InstanceID:      instanceID,
		IdleThreshold:   cfg.Gateway.IdleThreshold,
		AwayThreshold:   cfg.Gateway.AwayThreshold,
		SweepInterval:   cfg.Gateway.SweepInterval,
		CleanupInterval: cfg.Gateway.CleanupInterval,
	})
	messaging := usecase.NewMessagingUseCase(connections, rooms, dispatcher)
	social := usecase.NewSocialUseCase(connections, rooms, dispatcher)

	metrics.ObserveGateway(connections.Len, connections.ActiveUsers, rooms.Len)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go gw.Run(ctx)

	// Every instance consumes the full bridge stream; the group id carries
	// the instance id so kafka does not partition frames across instances.
	broker.StartBridgeConsumer(ctx, cfg.Kafka.Brokers, cfg.Kafka.BridgeTopic, cfg.Kafka.GroupID+"-"+instanceID, dispatcher)
	broker.StartPostEventsConsumer(ctx, cfg.Kafka.Brokers, cfg.Kafka.PostEventsTopic, cfg.Kafka.GroupID, social)

	validator := auth.NewJWTValidatorWithPublicKey(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)

	e := echo.New()
	e.Logger.SetOutput(log.Writer())

	wsHandler := transport.NewWebsocketHandler(gw, messaging, social, validator, cfg.Gateway.SendBuffer)
	e.GET("/ws/:namespace/:token", wsHandler)
	e.GET("/ws/:namespace", wsHandler)
	e.GET("/healthz", transport.NewHealthHandler(gw))
	e.GET("/stats", transport.NewStatsHandler(gw))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
	cancel()
	e.Close()
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}
