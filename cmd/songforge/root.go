package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"SongForge/internal/config"
	"SongForge/pkg/logger"
)

type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "songforge",
		Short:         "SongForge generates lyrics, MIDI sketches and cover art through pluggable model backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return flags.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", os.Getenv("SONGFORGE_CONFIG"), "Path to the JSON configuration file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Dotenv file loaded before the configuration")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newPluginsCmd(flags))
	cmd.AddCommand(newGenerateCmd(flags))
	cmd.AddCommand(newPresetsCmd(flags))

	return cmd
}

// load reads the env file, then the configuration, then sets up logging.
// A missing default .env is not an error.
func (f *rootFlags) load() error {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil && !(errors.Is(err, fs.ErrNotExist) && f.envFile == ".env") {
			return fmt.Errorf("load env file %s: %w", f.envFile, err)
		}
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	f.cfg = cfg
	return nil
}
