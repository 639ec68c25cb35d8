package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"goac/internal/config"
	"goac/internal/logging"
	"goac/internal/store"
)

// Version is stamped at build time.
var Version = "0.3.0"

var (
	// Global flags
	homeDir    string
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "goac",
	Short: "goac - Autocrypt Level 1 for the command line",
	Long: `goac manages Autocrypt accounts and peers, composes encrypted
email with Autocrypt headers, and parses whatever lands in your inbox:
regular Autocrypt mail, Autocrypt-Gossip, and Autocrypt Setup Messages.

Messages are read and written as RFC 822 files; transport is your
mailer's problem.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(home()); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the goac version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("goac %s\n", Version)
	},
}

// home resolves the state directory: --home flag, then GOAC_HOME, then
// ~/.goac.
func home() string {
	if homeDir != "" {
		return homeDir
	}
	return config.DefaultHome()
}

// openStore loads config and opens the sqlite store. An explicit
// --config wins over <home>/config.yaml.
func openStore() (*config.Config, *store.Store, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err == nil && homeDir != "" {
			cfg.Home = homeDir
		}
	} else {
		cfg, err = config.LoadFromHome(home())
	}
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	return cfg, s, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "state directory (default ~/.goac)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
