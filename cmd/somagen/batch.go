package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/somalabs/somagen/internal/batch"
	"github.com/somalabs/somagen/internal/logger"
)

func batchCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		rowRate    float64
		template   bool
	)

	flags := append(commonEngineFlags(), hubFlags()...)
	flags = append(flags, generationFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "measurements CSV to process",
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "results CSV path (default stdout)",
			Destination: &outputPath,
		},
		&cli.Float64Flag{
			Name:        "rate",
			Usage:       "rows per second sent to the model server",
			Value:       2,
			Destination: &rowRate,
		},
		&cli.BoolFlag{
			Name:        "template",
			Usage:       "write an input template CSV and exit",
			Destination: &template,
		},
	)

	return &cli.Command{
		Name:  "batch",
		Usage: "Generate summaries for a CSV of measurements",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(cmd, cfg)
			applyGenerationConfig(cmd, cfg)
			ctx = setupLogger(ctx)
			log := logger.FromContext(ctx)

			out := os.Stdout
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
				defer f.Close()
				out = f
			}

			if template {
				return batch.WriteTemplate(out)
			}
			if inputPath == "" {
				return cli.Exit("error: --input is required (or --template)", 1)
			}

			in, err := os.Open(inputPath)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			defer in.Close()

			rows, err := batch.ParseInput(in)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			log.Info("processing batch", "rows", len(rows), "input", inputPath)

			eng := buildEngine()
			defer eng.Close()

			okMark := color.New(color.FgGreen).Sprint("ok")
			failMark := color.New(color.FgRed).Sprint("failed")

			runner := batch.Runner{
				Engine:   eng,
				Defaults: generationDefaults(),
				Adapter:  adapterRepo,
				Limiter:  rate.NewLimiter(rate.Limit(rowRate), 1),
				OnResult: func(r batch.Result) {
					if r.Err != nil {
						fmt.Fprintf(os.Stderr, "row %d: %s: %v\n", r.Row.Line, failMark, r.Err)
						return
					}
					fmt.Fprintf(os.Stderr, "row %d: %s\n", r.Row.Line, okMark)
				},
			}

			results, err := runner.Run(ctx, rows)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			if err := batch.WriteResults(out, results); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			log.Info("batch finished", "rows", len(results), "failed", failed)
			return nil
		},
	}
}
