package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/fieldsync/internal/config"
	"github.com/iudanet/fieldsync/internal/server"
	"github.com/iudanet/fieldsync/internal/server/bus"
	"github.com/iudanet/fieldsync/internal/server/bus/zmqbus"
	"github.com/iudanet/fieldsync/internal/server/jwt"
	"github.com/iudanet/fieldsync/internal/server/maintenance"
	"github.com/iudanet/fieldsync/internal/server/publisher"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
)

// rootOptions глобальные флаги
type rootOptions struct {
	v          *viper.Viper
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:           "fieldsync-server",
		Short:         "FieldSync synchronization server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	flags.String("db", "", "path to server database")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")

	_ = opts.v.BindPFlag("server.database_path", flags.Lookup("db"))
	_ = opts.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", flags.Lookup("log-format"))

	cmd.AddCommand(
		newServeCommand(opts),
		newTokenCommand(opts),
		newReconcileCommand(opts),
		newBusProxyCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

// loadConfig читает конфигурацию и создает логгер
func loadConfig(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.v, opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// openBus создает шину по server.bus.kind
func openBus(cfg config.BusConfig, logger *slog.Logger) (bus.Bus, error) {
	switch cfg.Kind {
	case config.BusZMQ:
		return zmqbus.New(cfg.PubEndpoint, cfg.SubEndpoint, bus.DefaultBufferSize, logger)
	default:
		return bus.NewMemory(bus.DefaultBufferSize), nil
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync API and the push stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is required (FIELDSYNC_SERVER_JWT_SECRET)")
			}

			store, err := sqlite.New(ctx, cfg.Server.DatabasePath)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Error("failed to close database", "error", err)
				}
			}()

			b, err := openBus(cfg.Server.Bus, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.Close(); err != nil {
					logger.Error("failed to close bus", "error", err)
				}
			}()

			srv := server.New(cfg.Server, store, b, jwt.NewService(cfg.Server.JWTSecret), Version, logger)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("listen", "", "listen address")
	_ = opts.v.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen"))

	return cmd
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		tenantID string
		device   string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a device token for 'fieldsync login'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is required (FIELDSYNC_SERVER_JWT_SECRET)")
			}

			token, expiresAt, err := jwt.NewService(cfg.Server.JWTSecret).Issue(tenantID, device, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Token for %s/%s expires at %s\n", tenantID, device, expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&device, "device", "", "device id, used as stream subscriber id (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one maintenance pass: prune the log, expire idempotency keys, heal gaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}

			store, err := sqlite.New(ctx, cfg.Server.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			// Дописанные конверты уходят в шину, чтобы живые Gateway их увидели
			b, err := openBus(cfg.Server.Bus, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			producerID := cfg.Server.ProducerID
			if producerID == "" {
				producerID = "reconcile-" + uuid.NewString()
			}
			pub := publisher.New(store, b, producerID, logger)
			runner := maintenance.New(store, publisher.NewReconciler(pub, store, cfg.Server.LogRetention, logger), maintenance.Config{
				Interval:       cfg.Server.MaintenanceInterval,
				LogRetention:   cfg.Server.LogRetention,
				IdempotencyTTL: cfg.Server.IdempotencyTTL,
			}, logger)

			report, err := runner.RunOnce(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pruned envelopes:         %d\n", report.Pruned)
			fmt.Fprintf(out, "Expired idempotency keys: %d\n", report.Expired)
			fmt.Fprintf(out, "Reconciled changes:       %d\n", report.Reconciled)
			return err
		},
	}
}

func newBusProxyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bus-proxy",
		Short: "Run the ZeroMQ XSUB/XPUB proxy shared by server processes",
		Long: `Run the ZeroMQ XSUB/XPUB proxy.

Server processes publish to server.bus.pub_endpoint and subscribe to
server.bus.sub_endpoint; the proxy binds both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Server.Bus.PubEndpoint == "" || cfg.Server.Bus.SubEndpoint == "" {
				return errors.New("server.bus.pub_endpoint and server.bus.sub_endpoint are required")
			}
			return zmqbus.RunProxy(cmd.Context(), cfg.Server.Bus.PubEndpoint, cfg.Server.Bus.SubEndpoint, logger)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
