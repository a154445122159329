package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/somalabs/somagen/internal/engine"
	"github.com/somalabs/somagen/internal/measure"
	"github.com/somalabs/somagen/internal/prompt"
	"github.com/somalabs/somagen/internal/tokenizer"
)

func runCmd() *cli.Command {
	var (
		age        string
		sex        string
		height     string
		weight     string
		waist      string
		streamMode string
		showPrompt bool
		showStats  bool
	)

	flags := append(commonEngineFlags(), hubFlags()...)
	flags = append(flags, generationFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "age",
			Usage:       "age in years",
			Destination: &age,
		},
		&cli.StringFlag{
			Name:        "sex",
			Usage:       "sex (female, male)",
			Destination: &sex,
		},
		&cli.StringFlag{
			Name:        "height",
			Usage:       "height (cm unless suffixed, e.g. 1.72m, 68in)",
			Destination: &height,
		},
		&cli.StringFlag{
			Name:        "weight",
			Usage:       "weight (kg unless suffixed, e.g. 155lb)",
			Destination: &weight,
		},
		&cli.StringFlag{
			Name:        "waist",
			Usage:       "waist circumference in cm (optional)",
			Destination: &waist,
		},
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "output mode (instant, smooth, typewriter, quiet)",
			Value:       string(StreamSmooth),
			Destination: &streamMode,
		},
		&cli.BoolFlag{
			Name:        "show-prompt",
			Usage:       "print the rendered prompt before generation",
			Destination: &showPrompt,
		},
		&cli.BoolFlag{
			Name:        "show-stats",
			Usage:       "print generation statistics",
			Value:       true,
			Destination: &showStats,
		},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate one summary from a measurement",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyEngineConfig(cmd, cfg)
			applyGenerationConfig(cmd, cfg)
			if cfg.StreamMode != "" && !cmd.IsSet("stream-mode") {
				streamMode = cfg.StreamMode
			}
			ctx = setupLogger(ctx)

			var (
				m   measure.Measurement
				err error
			)
			if age == "" && sex == "" && height == "" && weight == "" {
				m, err = promptMeasurement()
			} else {
				m, err = measure.FromFields(age, sex, height, weight, waist)
			}
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			text, err := prompt.Render(m)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			counter := buildCounter(ctx)
			if maxContext > 0 {
				inputTokens := counter.Count(text)
				if inputTokens+int(maxTokens) > int(maxContext) {
					return cli.Exit(fmt.Sprintf(
						"error: prompt (%d tokens) plus max-tokens (%d) exceeds the %d token context window",
						inputTokens, maxTokens, maxContext), 1)
				}
			}

			eng := buildEngine()
			defer eng.Close()

			if showPrompt {
				color.New(color.FgCyan).Fprintln(os.Stderr, text)
				fmt.Fprintln(os.Stderr)
			}

			header := color.New(color.FgGreen, color.Bold)
			header.Printf("Summary for %s, age %d (BMI %.1f)\n\n", m.Sex, m.Age, m.BMI())

			writer := NewStreamWriter(StreamMode(streamMode))
			req := engine.Resolve(text, adapterRepo, engine.Options{}, generationDefaults())
			result, err := eng.Generate(ctx, &req, writer.Write)
			raw := writer.Flush()
			if err != nil {
				return cli.Exit("error: generate: "+err.Error(), 1)
			}

			clean := prompt.SanitizeOutput(result.Text)
			if clean == "" {
				clean = prompt.SanitizeOutput(raw)
			}
			if StreamMode(streamMode) == StreamQuiet {
				fmt.Println(clean)
			} else {
				fmt.Println()
			}

			if showStats {
				printStats(result, counter, text)
			}
			return nil
		},
	}
}

func printStats(result *engine.Result, counter tokenizer.Counter, promptText string) {
	faint := color.New(color.Faint)
	outputTokens := result.Stats.TokensGenerated
	if outputTokens == 0 {
		outputTokens = counter.Count(result.Text)
	}
	faint.Fprintf(os.Stderr, "\n[input %d tokens, output %d tokens", counter.Count(promptText), outputTokens)
	if result.Stats.TPS > 0 {
		faint.Fprintf(os.Stderr, ", %.1f tok/s", result.Stats.TPS)
	}
	faint.Fprintln(os.Stderr, "]")
}
