package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/rdbridge/internal/config"
	"github.com/muurk/rdbridge/internal/logging"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the rdbridge config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	// The file may not exist yet, so settings are not loaded
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return logging.InitializeFromEnv()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !flagForce {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}

		if err := config.Defaults().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (file plus environment)",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *settings
		if shown.Service.AuthToken != "" {
			shown.Service.AuthToken = "********"
		}

		if flagFormat == formatJSON {
			return writeJSON(cmd.OutOrStdout(), shown)
		}
		data, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func configPath() (string, error) {
	if flagConfigPath != "" {
		return flagConfigPath, nil
	}
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path, nil
	}
	return config.GetConfigPath()
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
