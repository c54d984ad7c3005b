// Command clinic-agent runs on field devices. It keeps the local offline
// queue and pushes queued clinical records to the clinic backend whenever
// connectivity allows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polmed/mobiclinic/internal/client"
	"github.com/polmed/mobiclinic/internal/config"
	"github.com/polmed/mobiclinic/internal/offline"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-agent",
		Short: "Field device agent for the mobile clinic backend",
	}

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(drainCmd())
	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the background sync loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadAgentConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireBackend(); err != nil {
				return err
			}

			queue, err := openQueue(cfg, logger)
			if err != nil {
				return err
			}
			defer queue.Close()

			syncer := offline.NewSyncer(queue, newBackendClient(cfg), nil,
				time.Duration(cfg.SyncInterval)*time.Second, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info().
				Str("backend", cfg.BackendURL).
				Int("interval_seconds", cfg.SyncInterval).
				Msg("sync loop started")
			syncer.Run(ctx)
			logger.Info().Msg("sync loop stopped")
			return nil
		},
	}
}

func drainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Submit all pending records once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadAgentConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireBackend(); err != nil {
				return err
			}

			queue, err := openQueue(cfg, logger)
			if err != nil {
				return err
			}
			defer queue.Close()

			syncer := offline.NewSyncer(queue, newBackendClient(cfg), nil,
				time.Duration(cfg.SyncInterval)*time.Second, logger)

			synced, failed, err := syncer.SyncOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("drain failed: %w", err)
			}

			fmt.Printf("Synced %d record(s), %d rejected.\n", synced, failed)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue contents without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadAgentConfig()
			if err != nil {
				return err
			}

			queue, err := openQueue(cfg, logger)
			if err != nil {
				return err
			}
			defer queue.Close()

			pending := queue.Pending()
			failed := queue.Failed()
			fmt.Printf("Pending: %d  Failed: %d\n", len(pending), len(failed))
			for _, rec := range pending {
				fmt.Printf("  pending  %-36s %-12s queued %s attempts %d\n",
					rec.ID, rec.Kind, rec.QueuedAt.Format("2006-01-02 15:04:05"), rec.Attempts)
			}
			for _, rec := range failed {
				fmt.Printf("  failed   %-36s %-12s %s\n", rec.ID, rec.Kind, rec.LastError)
			}
			return nil
		},
	}
}

func loadAgentConfig() (*config.Config, zerolog.Logger, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logger, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

func openQueue(cfg *config.Config, logger zerolog.Logger) (*offline.Queue, error) {
	if err := os.MkdirAll(cfg.OfflineDir, 0o755); err != nil {
		return nil, fmt.Errorf("create offline directory: %w", err)
	}
	return offline.Open(filepath.Join(cfg.OfflineDir, "queue.jsonl"), logger)
}

func newBackendClient(cfg *config.Config) *client.Client {
	deviceID := cfg.DeviceID
	if deviceID == "" {
		if host, err := os.Hostname(); err == nil {
			deviceID = host
		}
	}
	return client.New(cfg.BackendURL, cfg.APIToken, client.WithDeviceID(deviceID))
}
