package cmd

import (
	"errors"
	"strings"

	"github.com/arcanaland/grimoire/internal/client"
	"github.com/arcanaland/grimoire/internal/config"
	"github.com/arcanaland/grimoire/internal/logging"
	"github.com/spf13/cobra"
)

var (
	addrFlag   string
	configFlag string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "Store and browse trading card collections",
	Long: `Grimoire keeps one collection of trading cards per user on a store server.
Run 'grimoire serve' to start the server, then add, update, delete, show and
list cards from any terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "store server address (host:port or ws://host:port/ws)")
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to the config file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// reportedError marks a failure the command already printed.
type reportedError struct {
	command string
}

func (e reportedError) Error() string {
	return e.command + " failed"
}

// Reported reports whether err has already been shown to the user.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// loadConfig reads the config file and configures logging from it. An
// explicit --config must exist; the default location is created on demand.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := strings.TrimSpace(configFlag); path != "" {
		cfg, err = config.LoadConfigFrom(path)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}
	logging.ConfigureLevel(cfg.Log.Level)
	return cfg, nil
}

// newClient builds a client from config, letting --addr win.
func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	addr := cfg.Client.Addr
	if strings.TrimSpace(addrFlag) != "" {
		addr = addrFlag
	}
	return client.New(addr,
		client.WithTimeout(cfg.Client.Timeout.Duration),
		client.WithMaxPayload(cfg.Client.MaxPayloadBytes),
	), nil
}
