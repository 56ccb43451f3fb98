// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the irca-engine CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/irca-engine/internal/history"
	"github.com/pdiddy/irca-engine/internal/logging"
	"github.com/pdiddy/irca-engine/internal/metrics"
	"github.com/pdiddy/irca-engine/internal/runner"
	"github.com/pdiddy/irca-engine/internal/workflow"
	"github.com/pdiddy/irca-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	appConfig types.Config
	logger    = zap.NewNop()
)

// rootCmd is the base command for the irca-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "irca-engine",
	Short: "Water-quality IRCA report automation for airport facilities",
	Long: `irca-engine builds the monthly IRCA water-quality reports of the airport
network in three gated steps: generate the per-city base workbooks (base),
fill their TAGS sheets from the IRCA dataset (tags), and render the Word
reports (render). The workflow commands sequence the steps with completion
markers; serve exposes the same workflow through a web front end.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./irca-engine.yaml or ~/.config/irca-engine/irca-engine.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("irca-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "irca-engine"))
		}
	}

	viper.SetEnvPrefix("IRCA_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the viper settings over the defaults.
func loadConfig() (types.Config, error) {
	d := types.DefaultConfig()
	defaults := map[string]any{
		"data_dir":             d.DataDir,
		"source_dir":           d.SourceDir,
		"templates_dir":        d.TemplatesDir,
		"irca_file":            d.IRCAFile,
		"photos_file":          d.PhotosFile,
		"template_year":        d.TemplateYear,
		"airports":             d.Airports,
		"step_timeouts.base":   d.StepTimeouts.Base,
		"step_timeouts.tags":   d.StepTimeouts.Tags,
		"step_timeouts.render": d.StepTimeouts.Render,
		"step_timeouts.photos": d.StepTimeouts.Photos,
		"server.addr":          d.Server.Addr,
		"server.powerbi_url":   d.Server.PowerBIURL,
		"log.level":            d.Log.Level,
		"log.format":           d.Log.Format,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}

	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// newController opens the history store and builds a workflow controller.
// With subprocess set, steps re-invoke this binary instead of running
// in-process; otherwise their status lines also go to out when it is not
// nil. The returned func closes the store.
func newController(subprocess bool, m *metrics.Metrics, out io.Writer) (*workflow.Controller, func(), error) {
	store, err := history.Open(appConfig.DataDir)
	if err != nil {
		return nil, nil, err
	}
	opts := []workflow.Option{
		workflow.WithHistory(store),
		workflow.WithLogger(logger),
		workflow.WithMetrics(m),
	}
	if subprocess {
		cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
		r, err := runner.NewSubprocess(appConfig, cfgFile, logger)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		opts = append(opts, workflow.WithRunner(r))
	} else {
		r := runner.NewInProcess(appConfig)
		r.Out = out
		opts = append(opts, workflow.WithRunner(r))
	}
	return workflow.New(appConfig, opts...), func() { store.Close() }, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
