package main

import (
	"errors"
	"fmt"
	"os"

	"dailynews/pkg/config"
	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage the dailynews configuration file.

Configuration is resolved in this order (later wins):
  - built-in defaults
  - configuration file
  - .env file and DAILYNEWS_* environment variables
  - command line flags`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the built-in defaults, including the default categories and their
extraction rules, to --config or to ` + config.DefaultConfigPath() + `.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		ui.PrintSuccess("Configuration file created: " + path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to format configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd, nil); err != nil {
			ui.PrintError("Configuration has errors:")
			var joined interface{ Unwrap() []error }
			if errors.As(err, &joined) {
				for _, e := range joined.Unwrap() {
					fmt.Fprintf(os.Stderr, "  - %s\n", e)
				}
			}
			return err
		}
		ui.PrintSuccess("Configuration is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
