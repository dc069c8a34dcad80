package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/config"
	"github.com/GoCodeAlone/modgraph/feeders"
	"github.com/GoCodeAlone/modgraph/gateway/memory"
	"github.com/GoCodeAlone/modgraph/gateway/remote"
	"github.com/GoCodeAlone/modgraph/gateway/sqlite"
	"github.com/GoCodeAlone/modgraph/gateway/yamldir"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "MODGRAPH"

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ErrUnsupportedConfigFile is returned for config files with an unknown
// extension.
var ErrUnsupportedConfigFile = errors.New("unsupported config file extension")

// PrintVersion prints version information
func PrintVersion() string {
	return fmt.Sprintf("modgraph v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	modulesDir string
	backend    string
	logLevel   string
}

// NewRootCommand creates the root command for the modgraph application
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "modgraph",
		Short: "modgraph - track modules and their dependencies",
		Long: `modgraph keeps a collection of named modules and the modules they depend on.
It serves them over HTTP, validates module files, and renders the dependency
graph, statistics and CSV exports.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (.yaml, .yml, .toml or .json)")
	flags.StringVar(&opts.envFile, "env-file", "", "Optional .env file with "+EnvPrefix+"_ variables")
	flags.StringVar(&opts.modulesDir, "modules-dir", "", "Directory of module YAML files")
	flags.StringVar(&opts.backend, "backend", "", "Storage backend: yaml, sqlite, memory or remote")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newGraphCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newMetadataCommand(opts))
	cmd.AddCommand(newSurrogateCommand(opts))
	cmd.AddCommand(newBulkCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	})

	return cmd
}

// feederFunc adapts a function to config.Feeder.
type feederFunc func(structure any) error

func (f feederFunc) Feed(structure any) error { return f(structure) }

// loadConfig layers the config file, the .env file, the environment and
// finally the command line flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if o.configPath != "" {
		f, err := fileFeeder(o.configPath)
		if err != nil {
			return nil, err
		}
		loader.AddFeeder(f)
	}
	if o.envFile != "" {
		loader.AddFeeder(feeders.NewDotEnvFeeder(o.envFile, EnvPrefix))
	}
	loader.AddFeeder(feeders.NewEnvFeeder(EnvPrefix))
	loader.AddFeeder(feederFunc(func(structure any) error {
		cfg := structure.(*config.Config)
		if o.modulesDir != "" {
			cfg.Storage.ModulesDir = o.modulesDir
		}
		if o.backend != "" {
			cfg.Storage.Backend = o.backend
		}
		if o.logLevel != "" {
			cfg.LogLevel = o.logLevel
		}
		return nil
	}))

	cfg := &config.Config{}
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fileFeeder(path string) (config.Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return feeders.NewYamlFeeder(path), nil
	case ".toml":
		return feeders.NewTomlFeeder(path), nil
	case ".json":
		return feeders.NewJSONFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConfigFile, path)
	}
}

func newLogger(cfg *config.Config, w io.Writer) modgraph.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return modgraph.NewSlogLogger(slog.New(handler))
}

// openGateway builds the configured backend. The returned close function is
// never nil.
func openGateway(cfg *config.Config, logger modgraph.Logger) (modgraph.Gateway, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage.Backend {
	case config.BackendYAML:
		repo, err := yamldir.New(cfg.Storage.ModulesDir, yamldir.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return repo, repo.Close, nil
	case config.BackendMemory:
		return memory.New(memory.WithValidation()), noop, nil
	case config.BackendRemote:
		client, err := remote.New(cfg.Storage.RemoteURL)
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown backend %q", config.ErrConfigInvalid, cfg.Storage.Backend)
	}
}

// session is a loaded store plus everything needed to tear it down.
type session struct {
	cfg    *config.Config
	logger modgraph.Logger
	store  *modgraph.Store
	close  func() error
}

func (o *globalOptions) openStore(ctx context.Context, cmd *cobra.Command, storeOpts ...modgraph.StoreOption) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	gw, closeFn, err := openGateway(cfg, logger)
	if err != nil {
		return nil, err
	}

	storeOpts = append([]modgraph.StoreOption{
		modgraph.WithLogger(logger),
		modgraph.WithHistoryLimit(cfg.History.Limit),
	}, storeOpts...)
	store, err := modgraph.NewStore(gw, storeOpts...)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	if err := store.Load(ctx); err != nil {
		_ = closeFn()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: store, close: closeFn}, nil
}

// parseStatuses accepts repeated or comma separated status values.
func parseStatuses(values []string) ([]modgraph.Status, error) {
	var statuses []modgraph.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := modgraph.ParseStatus(part)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

// parseFilters reads type:value pairs.
func parseFilters(values []string) ([]modgraph.SearchFilter, error) {
	filters := make([]modgraph.SearchFilter, 0, len(values))
	for _, raw := range values {
		typ, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("%w: filter %q must look like type:value", modgraph.ErrValidation, raw)
		}
		f, err := modgraph.NewSearchFilter(modgraph.FilterType(strings.TrimSpace(typ)), strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}
