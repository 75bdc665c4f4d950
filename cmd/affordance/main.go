package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sc2affordance/internal/config"
	"sc2affordance/internal/graph"
	"sc2affordance/internal/index"
	"sc2affordance/internal/prefab"
)

var (
	rootCmd = &cobra.Command{
		Use:   "affordance",
		Short: "StarCraft II affordance layer: linkage graph, prefab functions and tactic advice",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.LoadConfig(configPath); err != nil {
				return err
			}
			logger, err = newLogger(verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	configPath string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(neighborsCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(mermaidCmd)
	rootCmd.AddCommand(adviseCmd)
	rootCmd.AddCommand(validateCmd)
}

// newLogger builds the production console logger; verbose lowers the level
// to debug.
func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{"stderr"}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

// loadGraph reads the exported linkage graph named by the configuration.
func loadGraph() (*graph.Graph, error) {
	g, err := index.LoadGraph(logger, cfg.Data.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run `affordance build` first)", err)
	}
	return g, nil
}

// loadLibrary reads the prefab library for race, validated against the
// configured schema.
func loadLibrary(race string) (*prefab.Manager, error) {
	opts := []prefab.ManagerOption{prefab.WithCacheSize(cfg.Handler.CacheSize)}
	if cfg.Data.SchemaPath != "" {
		v, err := prefab.NewValidator(cfg.Data.SchemaPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, prefab.WithValidator(v))
	}
	m := prefab.NewManager(logger, opts...)
	if _, err := m.Load(cfg.Data.PrefabPath, prefab.LoadOptions{Race: race}); err != nil {
		return nil, err
	}
	return m, nil
}
