// Package command implements the riskctl command line.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"riskdash/internal/amqp"
	"riskdash/internal/cli"
	"riskdash/internal/config"
	"riskdash/internal/console"
	applog "riskdash/internal/log"
	"riskdash/internal/render"
	"riskdash/internal/services"
	"riskdash/internal/style"
	"riskdash/internal/version"
)

// Publisher queues import requests for the worker.
type Publisher interface {
	PublishImportRequest(ctx context.Context, req *amqp.ImportRequest) error
}

// Deps overrides the collaborators riskctl would otherwise build from the
// environment. Nil fields are built on first use.
type Deps struct {
	Service   *services.DashboardService
	Renderer  *render.Renderer
	Publisher Publisher
}

type rootFlags struct {
	envFile  string
	file     string
	backend  string
	kpis     string
	style    string
	logLevel string
}

// App is the riskctl command tree.
type App struct {
	root  *cobra.Command
	out   io.Writer
	con   *console.Console
	flags rootFlags
	deps  Deps

	cfg     *config.Config
	logger  *applog.Logger
	closers []func() error
}

// New builds the command tree writing to out (stdout when nil).
func New(out io.Writer, deps Deps) *App {
	if out == nil {
		out = os.Stdout
	}
	a := &App{out: out, con: console.New(out), deps: deps}

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Credit risk dashboard in the terminal",
		Version:       version.FormatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetVersionTemplate(`{{printf "riskctl version: %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.envFile, "env-file", "", "Load environment variables from this file before reading the configuration")
	pf.StringVarP(&a.flags.file, "file", "f", "", "Read loans from this CSV file instead of the configured backend")
	pf.StringVarP(&a.flags.backend, "backend", "b", "", "Data backend: csv, sqlite, sheets, s3 or postgres (default: DATA_BACKEND)")
	pf.StringVar(&a.flags.kpis, "kpis", "", "KPI document path, JSON, YAML or TOML (default: KPI_PATH)")
	pf.StringVar(&a.flags.style, "style", "", "Chart style overrides file (default: STYLE_PATH)")
	pf.StringVar(&a.flags.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.summaryCmd(),
		a.yearsCmd(),
		a.monthlyCmd(),
		a.riskCmd(),
		a.ageCmd(),
		a.profileCmd(),
		a.modelsCmd(),
		a.exportCmd(),
		a.chartCmd(),
		a.importCmd(),
		a.versionCmd(),
	)
	a.root = root
	return a
}

// SetArgs overrides os.Args[1:].
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Execute runs the command selected by the arguments.
func (a *App) Execute(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// config loads the environment configuration once and applies the flag
// overrides.
func (a *App) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	if a.flags.envFile != "" {
		cli.LoadEnvFile(a.flags.envFile)
	} else {
		cli.LoadEnvFile()
	}

	cfg := config.Load()
	cfg.LogLevel = a.flags.logLevel
	if a.flags.backend != "" {
		cfg.DataBackend = strings.ToLower(a.flags.backend)
	}
	if a.flags.file != "" {
		cfg.DataBackend = "csv"
		cfg.DatasetPath = a.flags.file
	}
	if a.flags.kpis != "" {
		cfg.KPIPath = a.flags.kpis
	}
	if a.flags.style != "" {
		cfg.StylePath = a.flags.style
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := applog.DefaultConfig()
	logCfg.Output = os.Stderr
	logCfg.Format = "text"
	logCfg.Level = applog.ParseLevel(cfg.LogLevel)
	logCfg.Component = applog.ComponentCLI
	a.logger = applog.New(logCfg)
	a.cfg = cfg
	return cfg, nil
}

func (a *App) service(ctx context.Context) (*services.DashboardService, *render.Renderer, error) {
	if a.deps.Service != nil {
		if a.deps.Renderer == nil {
			a.deps.Renderer = render.New(style.Default())
		}
		return a.deps.Service, a.deps.Renderer, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	d, err := cli.BuildDashboard(ctx, cfg, a.logger, nil)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, d.Close)
	a.deps.Service, a.deps.Renderer = d.Service, d.Renderer
	return d.Service, d.Renderer, nil
}

func (a *App) publisher() (Publisher, error) {
	if a.deps.Publisher != nil {
		return a.deps.Publisher, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if cfg.AMQPURL == "" {
		return nil, cli.ErrImportsDisabled
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.deps.Publisher = client
	return client, nil
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the riskctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "riskctl", version.FormatVersion())
		},
	}
}
