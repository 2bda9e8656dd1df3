// Package main provides the subjects binary: a personal records register
// with an interactive console, an HTTP form and a one-shot export.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/subjects/internal/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "subjects"
)

// envLoaded records whether a .env file was applied, for the startup log.
var envLoaded bool

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	envLoaded = godotenv.Overload() == nil

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the root persistent flags. Set flags override the environment.
type flags struct {
	storePath  string
	exportPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Personal records register",
		Long: `Subjects keeps a register of personal records (name, surname,
patronymic, passport number and birth date) in a semicolon-delimited
text file and exports them to CSV.

Configuration is read from the environment and an optional .env file;
flags override both.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&f.storePath, "store", "", "Store file path (overrides SUBJECTS_STORE_PATH)")
	cmd.PersistentFlags().StringVar(&f.exportPath, "export-path", "", "Default export path (overrides SUBJECTS_EXPORT_PATH)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	load := func() (*config.Config, error) {
		return loadConfig(f)
	}

	cmd.AddCommand(
		consoleCmd(load),
		serveCmd(load),
		exportCmd(load),
		versionCmd(),
	)

	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if f.storePath != "" {
		cfg.Store.Path = f.storePath
	}
	if f.exportPath != "" {
		cfg.Export.Path = f.exportPath
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}
