package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"osmandlink/pkg/config"
	"osmandlink/pkg/logging"
	"osmandlink/pkg/version"
)

const defaultConfigPath = "configs/osmandlink.yaml"

var (
	configPath string
	envFile    string

	appCfg      *config.Config
	cleanupLogs func()
)

var rootCmd = &cobra.Command{
	Use:   "osmandlink",
	Short: "Turn addresses and coordinates into OsmAnd links",
	Long: `osmandlink converts the text of a web form field into an OsmAnd map link.

Coordinate pairs ("51.5,-0.12") become links directly; anything else is
geocoded through Nominatim first. Run "serve" to bridge browser pages over a
WebSocket, or "convert" to work on text in the terminal.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init-config" {
			return nil
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanupLogs != nil {
			cleanupLogs()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with OSMANDLINK_* overrides")

	rootCmd.AddCommand(serveCmd, convertCmd, linkCmd, initConfigCmd)
}

// setup loads .env, the config file and the loggers.
func setup() error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanup, err := logging.Init(&cfg.Log, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	appCfg = cfg
	cleanupLogs = cleanup

	slog.Debug("OsmandLink started", "version", version.Version, "config", configPath)
	return nil
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default config file and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.GenerateDefault(configPath); err != nil {
			return fmt.Errorf("failed to generate config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file generated: %s\n", configPath)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
