package main

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyp3rd/memclient"
	"github.com/hyp3rd/memclient/pkg/middleware"
	"github.com/hyp3rd/memclient/pkg/retry"
	"github.com/hyp3rd/memclient/pkg/stats"
)

// globalFlags are shared by every client subcommand.
type globalFlags struct {
	configFile string
	namespace  string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	verbose    bool
	showStats  bool
}

// app carries the state built once per invocation.
type app struct {
	flags     globalFlags
	logger    *zap.SugaredLogger
	collector *stats.HistogramStatsCollector
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "memclient",
		Short:         "Client for the remote memory store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := newLogger(a.flags.verbose)
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.showStats && a.collector != nil {
				enc := json.NewEncoder(cmd.ErrOrStderr())
				enc.SetIndent("", "  ")

				err := enc.Encode(a.collector.GetStats())
				if err != nil {
					return err
				}
			}

			if a.logger != nil {
				_ = a.logger.Sync()
			}

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configFile, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&a.flags.namespace, "namespace", "n", "", "namespace (overrides the config file)")
	pf.StringVar(&a.flags.baseURL, "base-url", "", "base URL of the memory API (overrides the config file)")
	pf.StringVar(&a.flags.apiKey, "api-key", "", "API key (overrides the config file)")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "per-request timeout")
	pf.IntVar(&a.flags.attempts, "retries", 0, "attempts per operation, first try included (0 keeps the configured policy)")
	pf.DurationVar(&a.flags.retryDelay, "retry-delay", 200*time.Millisecond, "fixed delay between attempts")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every call and retry")
	pf.BoolVar(&a.flags.showStats, "stats", false, "print call statistics to stderr on exit")

	root.AddCommand(
		a.putCmd(),
		a.getCmd(),
		a.deleteCmd(),
		a.existsCmd(),
		a.clearCmd(),
		a.keysCmd(),
		a.searchCmd(),
		a.getManyCmd(),
		a.deleteManyCmd(),
		newServeCmd(a),
	)

	return root
}

// config merges the config file with the flags.
func (a *app) config() (*memclient.Config, error) {
	cfg := &memclient.Config{}

	if a.flags.configFile != "" {
		loaded, err := memclient.LoadConfigFile(a.flags.configFile)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if a.flags.namespace != "" {
		cfg.Namespace = a.flags.namespace
	}

	if a.flags.baseURL != "" {
		cfg.BaseURL = a.flags.baseURL
	}

	if a.flags.apiKey != "" {
		cfg.APIKey = a.flags.apiKey
	}

	if a.flags.timeout > 0 {
		cfg.Timeout = a.flags.timeout
	}

	if a.flags.attempts > 0 {
		cfg.Retries = &retry.Policy{Attempts: a.flags.attempts, Delay: a.flags.retryDelay}
	}

	return cfg, nil
}

// service builds the client and decorates it with the logging and stats middlewares.
func (a *app) service() (memclient.Service, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	logger := zapPrintf{a.logger}
	a.logger.Debugw("client configured", "config", cfg.String())

	client, err := memclient.New(cfg, memclient.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var mw []memclient.Middleware

	if a.flags.verbose {
		mw = append(mw, middleware.Logging(logger))
	}

	if a.flags.showStats {
		a.collector = stats.NewHistogramStatsCollector()
		mw = append(mw, middleware.StatsCollector(a.collector))
	}

	return memclient.ApplyMiddleware(client, mw...), nil
}
