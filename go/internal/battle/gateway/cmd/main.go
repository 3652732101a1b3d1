package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/blockbattle/go/internal/battle/gateway"
	"github.com/mcdev12/blockbattle/go/internal/battleconfig"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cmd := &cli.Command{
		Name:  "battle-gateway",
		Usage: "matchmaking and relay server for two-player block battles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Sources: cli.EnvVars("BATTLE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "HTTP listen port (overrides config and PORT)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human readable console logs",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("battle gateway failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	config, err := battleconfig.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.IsSet("port") {
		config.Server.Port = cmd.String("port")
	}
	if cmd.IsSet("log-level") {
		config.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("pretty") {
		config.Log.Pretty = cmd.Bool("pretty")
	}

	if err := setupLogging(config.Log); err != nil {
		return err
	}

	log.Info().
		Str("port", config.Server.Port).
		Bool("events_enabled", config.EventsEnabled()).
		Str("nats_url", config.NATS.URL).
		Dur("match_duration", config.Match.Duration).
		Msg("starting battle gateway")

	gatewayService, err := gateway.NewService(config.GatewayConfig())
	if err != nil {
		return fmt.Errorf("create gateway service: %w", err)
	}

	server := setupServer(config.Server, gatewayService)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		stop()
		<-serviceDone
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway service did not stop before the shutdown timeout")
	}

	log.Info().Msg("battle gateway shutdown complete")
	return nil
}

func setupLogging(config battleconfig.LogConfig) error {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	if config.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

func setupServer(config battleconfig.ServerConfig, service *gateway.Service) *http.Server {
	mux := http.NewServeMux()
	service.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Port),
		Handler:     h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadTimeout: config.ReadTimeout,
		IdleTimeout: config.IdleTimeout,
	}
}
