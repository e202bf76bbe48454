package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/fieldsync/internal/client/realtime"
	"github.com/iudanet/fieldsync/internal/models"
)

// streamWriteTimeout таймаут записи ack в поток
const streamWriteTimeout = 10 * time.Second

func newQueueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show local mutations not yet confirmed by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Queue(ctx)
			})
		},
	}
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Send due queued mutations once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Sync(ctx)
			})
		},
	}
}

func newConflictsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "Show mutations waiting for conflict resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Conflicts(ctx)
			})
		},
	}
}

func newResolveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <mutation> keep-mine|keep-theirs|manual [field=value...]",
		Short: "Resolve a conflict",
		Long: `Resolve a conflict of a queued mutation.

  keep-mine    reapply the mutation on the current server version;
               fields, if given, replace the original payload
  keep-theirs  accept the server state and drop the mutation
  manual       write the given fields on the current server version`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Resolve(ctx, args[0], args[1], args[2:])
			})
		},
	}
}

func newRetryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <mutation>",
		Short: "Return a failed mutation to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Retry(ctx, args[0])
			})
		},
	}
}

func newDiscardCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <mutation>",
		Short: "Drop a failed or conflicting mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Discard(ctx, args[0])
			})
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected: deliver the queue and follow the push stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.queue.Recover(ctx); err != nil {
					return err
				}

				subscriber := realtime.New(
					&realtime.WebsocketDialer{
						Client:       a.client,
						WriteTimeout: streamWriteTimeout,
						ReadTimeout:  a.cfg.Server.HeartbeatTimeout,
					},
					a.fetcher,
					a.store,
					a.store,
					realtime.Config{
						SubscriberID: a.subscriberID,
						Backoff:      a.cfg.Backoff.Policy(),
						OnEnvelope: func(env *models.Envelope) {
							a.logger.Info("Change received",
								"entity", models.EntityKey(env.EntityType, env.EntityID),
								"version", env.EntityVersion,
								"sequence_id", env.SequenceID)
						},
						OnState: func(state realtime.State) {
							a.logger.Info("Stream state changed", "state", state.String())
							// Связь вернулась: не ждем следующего тика очереди
							if state == realtime.StateOpen {
								a.queue.Notify()
							}
						},
					},
					a.logger,
				)

				return a.cli.Watch(ctx, a.queue, subscriber)
			})
		},
	}
}
