package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/output"
)

var flagFrom string

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "List branches, or create one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			bl, err := app.Branches(ctx)
			if err != nil {
				return err
			}
			return render(cmd, bl)
		}
		if err := app.CreateBranch(ctx, args[0], flagFrom); err != nil {
			return err
		}
		return render(cmd, output.Message(fmt.Sprintf("Created branch '%s'", args[0])))
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout branch",
	Short: "Switch to a branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		if err := app.Checkout(ctx, args[0]); err != nil {
			return err
		}
		return render(cmd, output.Message(fmt.Sprintf("Switched to branch '%s'", args[0])))
	},
}

func init() {
	branchCmd.Flags().StringVar(&flagFrom, "from", "", "branch or commit to start from (default: HEAD)")
	rootCmd.AddCommand(branchCmd, checkoutCmd)
}
