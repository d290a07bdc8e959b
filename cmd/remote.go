package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/output"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List configured remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		remotes, err := app.Remotes(ctx)
		if err != nil {
			return err
		}
		return render(cmd, remotes)
	},
}

var remoteAddCmd = &cobra.Command{
	Use:   "add name url",
	Short: "Add a remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		if err := app.AddRemote(ctx, args[0], args[1]); err != nil {
			return err
		}
		return render(cmd, output.Message(fmt.Sprintf("Added remote '%s'", args[0])))
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [remote [branch]]",
	Short: "Push a branch to a remote",
	Long: `Push a local branch to the same-named branch on a remote. The remote
defaults to default-remote from config ("origin"), the branch to the current
one. https remotes on GitHub authenticate with --token or GitHub App
credentials.

Examples:
  ledgit push
  GITHUB_TOKEN=ghp_xxx ledgit push origin main
  ledgit push --github-app-id 12345 --github-app-key-path /path/to/key.pem`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		remote, branch := remoteArgs(args)
		if err := app.Push(ctx, remote, branch); err != nil {
			return err
		}
		return render(cmd, output.Message("Push completed"))
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [remote [branch]]",
	Short: "Fetch a branch from a remote and merge it",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		remote, branch := remoteArgs(args)
		res, err := app.Pull(ctx, remote, branch)
		if err != nil {
			return err
		}
		return render(cmd, res)
	},
}

func remoteArgs(args []string) (remote, branch string) {
	if len(args) > 0 {
		remote = args[0]
	}
	if len(args) > 1 {
		branch = args[1]
	}
	return remote, branch
}

func init() {
	remoteCmd.AddCommand(remoteAddCmd)
	rootCmd.AddCommand(remoteCmd, pushCmd, pullCmd)
}
