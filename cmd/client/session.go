package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iudanet/fieldsync/internal/client/cli"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var tokenFile string

	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Save a device token issued by the server operator",
		Long: `Save a device token issued with 'fieldsync-server token'.

The token is taken from FIELDSYNC_TOKEN, --token-file, the argument,
or an interactive prompt, in that order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := cli.TokenSource{FromFile: tokenFile}
			if len(args) == 1 {
				src.FromArgs = args[0]
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Login(ctx, a.cfg.Client.ServerURL, src)
			})
		},
	}

	cmd.Flags().StringVar(&tokenFile, "token-file", "", "read token from file")

	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Logout(ctx)
			})
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, stream cursor and queue summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return a.cli.Status(ctx)
			})
		},
	}
}
