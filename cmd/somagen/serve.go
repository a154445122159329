package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/somalabs/somagen/internal/api"
	"github.com/somalabs/somagen/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	flags := append(commonEngineFlags(), hubFlags()...)
	flags = append(flags, generationFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.StringFlag{
			Name:        "history-dsn",
			Usage:       "Postgres DSN for persistent history (empty = in-memory)",
			Destination: &historyDSN,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the summary API and web UI",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(cmd, cfg)
			applyGenerationConfig(cmd, cfg)
			applyServeConfig(cmd, cfg, &addr)

			ctx = setupLogger(ctx)
			log := logger.FromContext(ctx)

			var store api.HistoryStore
			if historyDSN != "" {
				pg, err := api.NewPostgresStore(historyDSN)
				if err != nil {
					return cli.Exit("history store: "+err.Error(), 1)
				}
				defer pg.Close()
				store = pg
				log.Info("using postgres history store")
			} else {
				store = api.NewMemoryStore()
			}

			eng := buildEngine()
			defer eng.Close()

			service := api.NewSummaryService(api.ServiceConfig{
				Engine:     eng,
				Counter:    buildCounter(ctx),
				Defaults:   generationDefaults(),
				Adapter:    adapterRepo,
				MaxContext: int(maxContext),
			})
			server := api.NewServer(store, service)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server",
				"address", addr, "engine", engineKind, "adapter", adapterRepo)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
