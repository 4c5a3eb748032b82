package cmd

import (
	"fmt"
	"strings"

	"github.com/arcanaland/grimoire/internal/config"
	"github.com/arcanaland/grimoire/internal/logging"
	"github.com/spf13/cobra"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the grimoire config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file with defaults if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		cfg, err := config.LoadOrCreateConfig(path)
		if err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}
		logging.ConfigureLevel(cfg.Log.Level)
		flags := cmd.Flags()
		if flags.Changed("data-dir") || flags.Changed("http-addr") {
			if flags.Changed("data-dir") {
				cfg.Store.DataDir, _ = flags.GetString("data-dir")
			}
			if flags.Changed("http-addr") {
				cfg.Server.HTTPAddr, _ = flags.GetString("http-addr")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveConfigTo(path, cfg); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Config file initialized at:", path)
		fmt.Fprintln(out, "Collections are stored in:", cfg.Store.DataDir)
		fmt.Fprintln(out, "Server address:", cfg.Server.Addr)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configPath())
	},
}

func configPath() string {
	if path := strings.TrimSpace(configFlag); path != "" {
		return path
	}
	return config.GetConfigFilePath()
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().String("data-dir", "", "directory holding the collections")
	configInitCmd.Flags().String("http-addr", "", "admin HTTP address, empty disables it")
}
