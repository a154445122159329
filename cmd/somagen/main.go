package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/somalabs/somagen/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:  "somagen",
		Usage: "Anthropometric summary generation CLI",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			serveCmd(),
			runCmd(),
			batchCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger builds the process logger from the logging flags and hangs
// it off the context for the packages below.
func setupLogger(ctx context.Context) context.Context {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}

	var log logger.Logger
	switch logFormat {
	case "json":
		log = logger.JSON(os.Stderr, level)
	case "text":
		log = logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		log = logger.Pretty(os.Stderr, level)
	}
	return logger.WithContext(ctx, log)
}
