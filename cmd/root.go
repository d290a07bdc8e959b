package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/output"
	"github.com/MyCarrier-DevOps/go-ledgit/pkg/ledgit"
)

// settings resolves every option from flags first, then LEDGIT_* env vars.
var settings = viper.New()

// rootCmd is the top-level command for ledgit.
var rootCmd = &cobra.Command{
	Use:   "ledgit",
	Short: "Version control for tabular data",
	Long: `ledgit versions a directory of CSV/TSV files with git: status, commits,
history, branches, merges with conflicts reported as data, and push/pull.

Every flag can also be set through the environment, e.g. LEDGIT_PATH,
LEDGIT_OUTPUT, LEDGIT_AUTHOR_NAME, LEDGIT_DEFAULT_REMOTE, LEDGIT_LOG_LIMIT.`,
	SilenceUsage: true,
	// Default action is status.
	RunE: statusRunE,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("path", "p", ".", "path to the repository")
	pf.String("config", "", "path to config file (default: .ledgit.yml in the repository)")
	pf.StringP("output", "o", "text", "output format: text or json")
	pf.StringP("verbosity", "v", "warn", "log verbosity: quiet, error, warn, info, debug")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("author-name", "", "commit author name (overrides config)")
	pf.String("author-email", "", "commit author email (overrides config)")
	pf.String("token", "", "GitHub token for https remotes (or set GITHUB_TOKEN env var)")
	pf.Int64("github-app-id", 0, "GitHub App ID (or set GH_APP_ID env var)")
	pf.String("github-app-key-path", "", "path to GitHub App private key PEM file (or set GH_APP_PRIVATE_KEY_PATH env var)")
	pf.String("github-url", "", "GitHub API base URL for GitHub Enterprise (or set GITHUB_API_URL env var)")

	_ = settings.BindPFlags(pf)
	settings.SetEnvPrefix("LEDGIT")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds an App from the resolved settings. Logs go to stderr.
func newApp(cmd *cobra.Command) (*ledgit.App, error) {
	return ledgit.New(ledgit.Options{
		ConfigPath:       settings.GetString("config"),
		AuthorName:       settings.GetString("author-name"),
		AuthorEmail:      settings.GetString("author-email"),
		DefaultRemote:    settings.GetString("default-remote"),
		LogLimit:         settings.GetInt("log-limit"),
		GitHubToken:      settings.GetString("token"),
		GitHubAppID:      settings.GetInt64("github-app-id"),
		GitHubAppKeyPath: settings.GetString("github-app-key-path"),
		GitHubAPIURL:     settings.GetString("github-url"),
		Verbosity:        settings.GetString("verbosity"),
		LogFormat:        settings.GetString("log-format"),
		LogWriter:        cmd.ErrOrStderr(),
	})
}

// openApp builds an App and opens the repository at --path.
func openApp(cmd *cobra.Command) (*ledgit.App, context.Context, error) {
	app, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := app.Open(ctx, settings.GetString("path")); err != nil {
		return nil, nil, err
	}
	return app, ctx, nil
}

// render writes v to stdout in the --output format.
func render(cmd *cobra.Command, v any) error {
	format, err := output.ParseFormat(settings.GetString("output"))
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), format, v)
}
