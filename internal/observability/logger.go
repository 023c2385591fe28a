package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-readable lines for one-shot commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON lines for serve and watch.
	ServerLogger *logging.Logger
)

var fatal = func(msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(foundry.ExitConfigInvalid)
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if !ok {
		os.Exit(int(foundry.ExitConfigInvalid))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}

// InitCLILogger sets CLILogger; verbose lowers the level to debug.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal("Failed to initialize CLI logger", err)
		return
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger sets ServerLogger to a structured JSON logger on stderr.
// A non-empty namespace is attached to every line.
func InitServerLogger(serviceName, logLevel, environment string, namespace ...string) {
	logger, err := logging.New(serverLoggerConfig(serviceName, logLevel, environment, namespace...))
	if err != nil {
		fatal("Failed to initialize server logger", err)
		return
	}
	ServerLogger = logger
}

func serverLoggerConfig(serviceName, logLevel, environment string, namespace ...string) *logging.LoggerConfig {
	if environment == "" {
		environment = "production"
	}
	static := map[string]any{}
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  environment,
		StaticFields: static,
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

// Logger returns the server logger when one was initialized, otherwise the
// CLI logger. It returns nil before either is set up.
func Logger() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

// parseLogLevel maps a config level onto a logging severity; unknown
// values are INFO.
func parseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}
