// Package cli provides the domguard command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/domguard"
	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
	infraconfig "github.com/felixgeelhaar/domguard/infrastructure/config"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
)

// Version information, overridable at build time.
var (
	Version   = domguard.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "domguard",
		Short: "Whitelist-guarded page mutations from natural-language commands",
		Long: `domguard turns a natural-language command and untrusted generated code
into one whitelisted, parameterized page mutation.

Generated code is never executed. It is validated and pattern-matched onto
a fixed action registry; when it fails validation the action is synthesized
from the command's keywords instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.initLogging()
		},
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (overrides config)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newActionsCmd(),
		app.newValidateCmd(),
		app.newClassifyCmd(),
		app.newSynthesizeCmd(),
		app.newDispatchCmd(),
		app.newRunCmd(),
		app.newHistoryCmd(),
		app.newServeCmd(),
		app.newConfigCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader used for "-" arguments.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "domguard version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}

// loadConfig loads the configured file, or the defaults when none is given.
func (a *App) loadConfig() (*domainconfig.Config, error) {
	loader := infraconfig.NewLoader()
	if a.configPath == "" {
		return loader.LoadDefault()
	}
	return loader.LoadFile(a.configPath)
}

// initLogging configures the default logger from the config file. Logs go
// to stderr so stdout stays machine-readable.
func (a *App) initLogging() error {
	settings := domainconfig.Default().Logging
	if cfg, err := a.loadConfig(); err == nil {
		settings = cfg.Logging
	}
	lc := logging.FromSettings(settings, a.stderr)
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}

	logging.Init(lc)
	logging.SetLevel(lc.Level)
	return nil
}

// buildRuntime loads configuration, applies mutate and builds every
// component. The caller must Close the runtime.
func (a *App) buildRuntime(ctx context.Context, mutate func(*domainconfig.Config)) (*infraconfig.Runtime, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if mutate != nil {
		mutate(cfg)
	}
	return infraconfig.NewBuilder(cfg,
		infraconfig.WithVersion(Version),
		infraconfig.WithTraceWriter(a.stderr),
	).Build(ctx)
}

// readArg returns the argument, or stdin when it is "-" or absent.
func (a *App) readArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
