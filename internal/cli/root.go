package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clapp-dev/clapp/internal/branding"
	"github.com/clapp-dev/clapp/internal/config"
	"github.com/clapp-dev/clapp/internal/logging"
	"github.com/clapp-dev/clapp/internal/service"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var verbose bool

// svc is built lazily from the loaded configuration. Tests assign it
// directly.
var svc *service.Service

// errSilent marks a failure that has already been reported to the user.
var errSilent = errors.New("command failed")

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs, inspects and publishes small Python and Lua apps.

Apps live under the apps root (~/.clapp/apps by default), one directory per
app with a manifest.json. Remote packages come from a JSON index.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errSilent) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// getService returns the shared service, building it on first use.
func getService() *service.Service {
	if svc != nil {
		return svc
	}
	config.Load()
	cfg := config.Current()
	svc = service.New(cfg, service.WithLogger(newLogger(cfg)))
	return svc
}

func newLogger(cfg config.Settings) *zap.Logger {
	return logging.NewOrNop(logging.ForCLI(cfg.LogLevel, cfg.LogFormat, verbose))
}

// report prints a service result and turns a failure into errSilent so the
// message is not printed twice.
func report(cmd *cobra.Command, res service.Result) error {
	if res.Success {
		fmt.Fprintln(cmd.OutOrStdout(), "✓", res.Message)
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "✗", res.Message)
	return errSilent
}
