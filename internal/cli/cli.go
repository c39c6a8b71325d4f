// Package cli parses the runtime's command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/cira-io/cira-runtime/internal/app"
)

// ExitError carries a specific process exit code alongside the message.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating a clean early exit (help), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("runtime", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cira-runtime - block pipeline runtime for edge devices.

Usage:
  runtime <manifest.json> [options]

Arguments:
  manifest.json
    Path to the pipeline manifest produced by the authoring tool.

Options:
`)
		flagSet.PrintDefaults()
	}

	blockPath := flagSet.String("block-path", "", "Directory containing block libraries and their definitions. Defaults to the manifest's block_library_path.")
	iterations := flagSet.Int("iterations", 0, "Stop after this many iterations. 0 runs until a shutdown signal.")
	rate := flagSet.Float64("rate", 0, "Iteration rate in Hz. 0 selects the default of 10.")
	logLevel := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormat := flagSet.String("log-format", "text", "Log output format: 'text' or 'json'.")
	healthPort := flagSet.Int("health-port", 0, "Port for the HTTP health/stats server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	manifestPath := flagSet.Arg(0)

	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	level := strings.ToLower(*logLevel)
	switch level {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg, err := app.NewConfig(app.Config{
		ManifestPath: manifestPath,
		BlockPath:    *blockPath,
		Iterations:   *iterations,
		RateHz:       *rate,
		LogFormat:    format,
		LogLevel:     level,
		HealthPort:   *healthPort,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return cfg, false, nil
}
