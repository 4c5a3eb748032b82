package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arcanaland/grimoire/internal/collection"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/arcanaland/grimoire/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the store server",
	Long: `Serve listens for card requests on the configured address and keeps
each user's collection under the data directory. When http_addr is set an
admin HTTP server exposes /health, /metrics and a /ws websocket transport.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if strings.TrimSpace(addrFlag) != "" {
			cfg.Server.Addr = addrFlag
		}

		store := collection.NewStore(cfg.Store.DataDir,
			collection.WithRetry(cfg.Store.RetryAttempts, cfg.Store.RetryBaseDelay.Duration, cfg.Store.RetryMaxDelay.Duration))
		dispatcher := server.NewDispatcher(store)
		srvCfg := server.Config{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			Limits:       protocol.Limits{MaxPayloadBytes: cfg.Server.MaxPayloadBytes},
		}
		log.Info().Str("data_dir", store.Root()).Msg("collection store ready")

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 2)
		running := 1
		go func() {
			errCh <- server.New(srvCfg, dispatcher).ListenAndServe(ctx)
		}()
		if httpAddr := strings.TrimSpace(cfg.Server.HTTPAddr); httpAddr != "" {
			running++
			go func() {
				errCh <- server.NewAdmin(httpAddr, dispatcher, srvCfg).Run(ctx)
			}()
		}

		var firstErr error
		for i := 0; i < running; i++ {
			if err := <-errCh; err != nil && firstErr == nil {
				firstErr = err
				stop()
			}
		}
		return firstErr
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// commandContext falls back to Background for commands run outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
