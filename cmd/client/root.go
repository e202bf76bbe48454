package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/cli"
	"github.com/iudanet/fieldsync/internal/client/iocli"
	"github.com/iudanet/fieldsync/internal/client/pack"
	"github.com/iudanet/fieldsync/internal/client/queue"
	"github.com/iudanet/fieldsync/internal/client/storage"
	"github.com/iudanet/fieldsync/internal/client/storage/boltdb"
	"github.com/iudanet/fieldsync/internal/config"
)

// anonymousSubscriber ID подписчика до login
const anonymousSubscriber = "anonymous"

// rootOptions глобальные флаги
type rootOptions struct {
	v          *viper.Viper
	configPath string
	output     string
}

// app собранные зависимости одной команды
type app struct {
	cfg          *config.Config
	store        *boltdb.Storage
	client       *api.Client
	queue        *queue.Queue
	fetcher      *pack.Fetcher
	cli          *cli.Cli
	logger       *slog.Logger
	subscriberID string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "fieldsync",
		Short: "FieldSync offline-first client",
		Long: `FieldSync keeps a local snapshot of tenant entities, queues local writes
while offline and delivers them to the server when connectivity returns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	flags.StringVarP(&opts.output, "output", "o", string(cli.FormatText), "output format (text|json|yaml)")
	flags.String("server", "", "server URL")
	flags.String("db", "", "path to local database")
	flags.String("log-level", "", "log level (debug|info|warn|error)")

	_ = opts.v.BindPFlag("client.server_url", flags.Lookup("server"))
	_ = opts.v.BindPFlag("client.database_path", flags.Lookup("db"))
	_ = opts.v.BindPFlag("log.level", flags.Lookup("log-level"))

	cmd.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newStatusCommand(opts),
		newMutateCommand(opts, "set", "Overwrite fields of an entity"),
		newMutateCommand(opts, "increment", "Add numeric deltas to fields"),
		newMutateCommand(opts, "append", "Append items to list fields"),
		newDeleteCommand(opts),
		newGetCommand(opts),
		newListCommand(opts),
		newQueueCommand(opts),
		newSyncCommand(opts),
		newConflictsCommand(opts),
		newResolveCommand(opts),
		newRetryCommand(opts),
		newDiscardCommand(opts),
		newPackCommand(opts),
		newResyncCommand(opts),
		newWatchCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

// withApp открывает локальную базу, собирает зависимости и закрывает их после fn
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	}()

	return fn(ctx, a)
}

func openApp(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.v, opts.configPath)
	if err != nil {
		return nil, err
	}

	format, err := cli.ParseFormat(opts.output)
	if err != nil {
		return nil, err
	}

	// Логи в stderr, чтобы не смешивать их с json/yaml выводом
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	store, err := boltdb.New(ctx, cfg.Client.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	serverURL := cfg.Client.ServerURL
	subscriberID := anonymousSubscriber
	var token string

	session, err := store.GetSession(ctx)
	switch {
	case err == nil:
		token = session.Token
		subscriberID = session.DeviceID
		// Сессия помнит сервер, флаг --server его перекрывает
		if !cmd.Flags().Changed("server") && session.ServerURL != "" {
			serverURL = session.ServerURL
		}
	case errors.Is(err, storage.ErrSessionNotFound):
	default:
		_ = store.Close()
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	cfg.Client.ServerURL = serverURL

	client := api.NewClient(serverURL, token)

	q := queue.New(store, client, queue.Config{
		Backoff:       cfg.Backoff.Policy(),
		MaxAttempts:   cfg.Client.MaxAttempts,
		Concurrency:   cfg.Client.Concurrency,
		CallTimeout:   cfg.Client.CallTimeout,
		DrainInterval: cfg.Client.DrainInterval,
	}, logger).WithSnapshot(store)

	fetcher := pack.NewFetcher(client, store, store, subscriberID, cfg.Client.EntityTypes, logger)

	c := cli.New(cli.Deps{
		IO:           iocli.NewStdio(),
		Queue:        q,
		Snapshot:     store,
		Packs:        fetcher,
		Sessions:     store,
		Server:       client,
		SubscriberID: subscriberID,
		Format:       format,
	})

	return &app{
		cfg:          cfg,
		store:        store,
		client:       client,
		queue:        q,
		fetcher:      fetcher,
		cli:          c,
		logger:       logger,
		subscriberID: subscriberID,
	}, nil
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
