package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/fieldsync/internal/client/cli"
	"github.com/iudanet/fieldsync/internal/models"
)

// newMutateCommand команды set, increment и append отличаются только операцией
func newMutateCommand(opts *rootOptions, op models.Operation, short string) *cobra.Command {
	var baseVersion int64

	cmd := &cobra.Command{
		Use:   string(op) + " <entity-type> <entity-id> field=value...",
		Short: short,
		Long: short + `.

The mutation is stored in the local queue and delivered by 'sync' or 'watch'.
Values are parsed as JSON when possible: qty=5, tags=["a","b"], note="text".`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mo := cli.MutateOptions{
				EntityType: args[0],
				EntityID:   args[1],
				Operation:  op,
				Fields:     args[2:],
			}
			if cmd.Flags().Changed("base-version") {
				mo.BaseVersion = &baseVersion
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Mutate(ctx, mo)
			})
		},
	}

	cmd.Flags().Int64Var(&baseVersion, "base-version", 0, "base version (default: version in local snapshot)")

	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	var baseVersion int64

	cmd := &cobra.Command{
		Use:   "delete <entity-type> <entity-id>",
		Short: "Soft delete an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mo := cli.MutateOptions{
				EntityType: args[0],
				EntityID:   args[1],
				Operation:  models.OpDelete,
			}
			if cmd.Flags().Changed("base-version") {
				mo.BaseVersion = &baseVersion
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Mutate(ctx, mo)
			})
		},
	}

	cmd.Flags().Int64Var(&baseVersion, "base-version", 0, "base version (default: version in local snapshot)")

	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <entity-type> <entity-id>",
		Short: "Show an entity from the local snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Get(ctx, args[0], args[1])
			})
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list <entity-type>",
		Short: "List entities of a type from the local snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.List(ctx, args[0], all)
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include deleted entities")

	return cmd
}

func newPackCommand(opts *rootOptions) *cobra.Command {
	var since int64

	cmd := &cobra.Command{
		Use:   "pack <entity-type>",
		Short: "Download a data pack and merge it into the local snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Pack(ctx, args[0], since)
			})
		},
	}

	cmd.Flags().Int64Var(&since, "since", 0, "only entities with version greater than this")

	return cmd
}

func newResyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Reseed the snapshot of client.entity_types and move the stream cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Resync(ctx)
			})
		},
	}
}
