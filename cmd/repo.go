package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a repository with an initial commit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		path := settings.GetString("path")
		if len(args) == 1 {
			path = args[0]
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		info, err := app.Init(ctx, path)
		if err != nil {
			return err
		}
		return render(cmd, info)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the repository path, name, branch, and remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		info, err := app.Info(ctx)
		if err != nil {
			return err
		}
		return render(cmd, info)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List modified, staged, untracked, and conflicted files",
	Args:  cobra.NoArgs,
	RunE:  statusRunE,
}

func statusRunE(cmd *cobra.Command, _ []string) error {
	app, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	st, err := app.Status(ctx)
	if err != nil {
		return err
	}
	return render(cmd, st)
}

func init() {
	rootCmd.AddCommand(initCmd, infoCmd, statusCmd)
}
