package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger backs one-shot commands such as check and tokens.
	CLILogger *logging.Logger

	// ServerLogger backs the HTTP service. It emits JSON to stderr.
	ServerLogger *logging.Logger
)

// Active returns the server logger when the service is running, otherwise
// the CLI logger. It may return nil before either is initialized.
func Active() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	// Set level to DEBUG if verbose
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}

	CLILogger = logger
}

// ServerLoggerOptions describes the service logger.
type ServerLoggerOptions struct {
	Service string
	Level   string
	// Environment is stamped on every entry; empty means "development".
	Environment string
	// Namespace becomes a static field when set.
	Namespace string
	// Profile is SIMPLE for human-readable console output; anything else
	// selects STRUCTURED JSON on stderr.
	Profile string
}

// InitServerLogger builds the service logger from opts and installs it as
// ServerLogger. On error the previous logger stays in place.
func InitServerLogger(opts ServerLoggerOptions) error {
	if strings.EqualFold(strings.TrimSpace(opts.Profile), "SIMPLE") {
		logger, err := logging.NewCLI(opts.Service)
		if err != nil {
			return fmt.Errorf("create simple server logger: %w", err)
		}
		switch parseLogLevel(opts.Level) {
		case "TRACE":
			logger.SetLevel(logging.TRACE)
		case "DEBUG":
			logger.SetLevel(logging.DEBUG)
		case "WARN":
			logger.SetLevel(logging.WARN)
		case "ERROR":
			logger.SetLevel(logging.ERROR)
		}
		ServerLogger = logger
		return nil
	}

	logger, err := logging.New(structuredConfig(opts))
	if err != nil {
		return fmt.Errorf("create structured server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

func structuredConfig(opts ServerLoggerOptions) *logging.LoggerConfig {
	environment := opts.Environment
	if environment == "" {
		environment = "development"
	}

	staticFields := map[string]any{}
	if opts.Namespace != "" {
		staticFields["namespace"] = opts.Namespace
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      opts.Service,
		Environment:  environment,
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr reports a logger bootstrap failure and exits. No logger
// exists yet at this point, so it writes to stderr directly.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		}
		os.Exit(int(exitCode))
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)

	os.Exit(info.Code)
}
