// Package main implements varnamc, the command-line wrapper around
// the govarnam transliteration engine.
//
// Commands are registered here; their implementations live in the
// cmd_*.go files next to this one.
package main

import (
	"fmt"
	"os"

	"govarnam/internal/config"
	"govarnam/internal/logging"
	"govarnam/pkg/varnam"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	flagConfig     string
	flagSchemeFile string
	flagSchemeID   string
	flagLearnings  string
	flagDebug      bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "varnamc",
	Short:         "Transliterate, learn and manage Indic-language input schemes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Encoding = "console"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if flagDebug {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		if logger, err = zapCfg.Build(); err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		if cfg, err = config.Load(flagConfig); err != nil {
			return err
		}
		if cfg.Logging.Dir != "" {
			if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Debug || flagDebug); err != nil {
				logger.Warn("file logging disabled", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
		logging.Close()
	},
}

// openHandle initializes a handle from --symbols or --scheme and wires
// the learning store when one is requested.
func openHandle() (*varnam.Varnam, error) {
	switch {
	case flagSchemeFile != "":
		v, err := varnam.Init(flagSchemeFile)
		if err != nil {
			return nil, err
		}
		if flagLearnings != "" {
			if err := v.EnableSuggestions(flagLearnings); err != nil {
				v.Close()
				return nil, err
			}
		}
		return v, nil
	case flagSchemeID != "":
		return varnam.InitFromID(flagSchemeID, cfg)
	default:
		return nil, fmt.Errorf("either --symbols or --scheme is required")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "varnamc.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagSchemeFile, "symbols", "s", "", "path to a compiled scheme file")
	rootCmd.PersistentFlags().StringVarP(&flagSchemeID, "scheme", "S", "", "scheme identifier, resolved through the configured directories")
	rootCmd.PersistentFlags().StringVar(&flagLearnings, "learnings", "", "path to the learning store")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		transliterateCmd,
		reverseCmd,
		detectCmd,
		schemesCmd,
		learnCmd,
		learnFileCmd,
		trainCmd,
		deleteWordCmd,
		exportCmd,
		importCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "varnamc:", err)
		os.Exit(1)
	}
}
