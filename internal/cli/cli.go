package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/projectgraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// propertyFlags collects repeated -p Key=Value flags.
type propertyFlags map[string]string

func (p propertyFlags) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ";")
}

func (p propertyFlags) Set(value string) error {
	for _, pair := range strings.Split(value, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, v, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("global property %q must look like Name=Value", pair)
		}
		p[name] = strings.TrimSpace(v)
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("projectgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
projectgraph - Builds the static project reference graph of a code base.

Usage:
  projectgraph [options] ENTRY_POINT...

Arguments:
  ENTRY_POINT
    A project file (*.proj.hcl), a solution file (*.sln.hcl), or a directory
    that is searched for project files.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	props := propertyFlags{}

	configFlag := flagSet.String("config", "", "Path to a YAML configuration file. Flags override its values.")
	flagSet.Var(props, "p", "Global property as Name=Value. Repeatable; ';' separates several.")
	parallelismFlag := flagSet.Int("parallelism", defaults.Parallelism, "Number of projects evaluated concurrently.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	eventsURLFlag := flagSet.String("events-url", "", "socket.io server that receives build events.")
	eventsNSFlag := flagSet.String("events-namespace", "/", "socket.io namespace for build events.")
	outputFlag := flagSet.String("output", defaults.OutputFormat, "Graph output format. Options: 'text' or 'json'.")
	ignoreFileFlag := flagSet.String("ignore-file", "", "gitignore style file applied when searching directories.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg := defaults
	if *configFlag != "" {
		if err := app.LoadConfigFile(*configFlag, &cfg); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		slog.Debug("Configuration file loaded.", "path", *configFlag)
	}

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["parallelism"] {
		cfg.Parallelism = *parallelismFlag
	}
	if set["log-format"] {
		cfg.LogFormat = strings.ToLower(*logFormatFlag)
	}
	if set["log-level"] {
		cfg.LogLevel = strings.ToLower(*logLevelFlag)
	}
	if set["healthcheck-port"] {
		cfg.HealthcheckPort = *healthPortFlag
	}
	if set["events-url"] {
		cfg.EventsURL = *eventsURLFlag
	}
	if set["events-namespace"] || cfg.EventsNamespace == "" {
		cfg.EventsNamespace = *eventsNSFlag
	}
	if set["output"] {
		cfg.OutputFormat = strings.ToLower(*outputFlag)
	}
	if set["ignore-file"] {
		cfg.IgnoreFile = *ignoreFileFlag
	}
	if len(props) > 0 {
		merged := make(map[string]string, len(cfg.GlobalProperties)+len(props))
		for k, v := range cfg.GlobalProperties {
			merged[k] = v
		}
		for k, v := range props {
			merged[k] = v
		}
		cfg.GlobalProperties = merged
	}
	if flagSet.NArg() > 0 {
		cfg.EntryPoints = flagSet.Args()
	}

	if len(cfg.EntryPoints) == 0 {
		slog.Debug("No entry points provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "entryPoints", config.EntryPoints)
	return config, false, nil
}
