package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clapp-dev/clapp/internal/service"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install <source|name>",
	Short: "Install an app",
	Long: `Install an app from a URL, a local .clapp.zip archive, a local directory
or, when the argument is none of those, by name from the remote index.

An app that is already installed is left alone unless --force is given.
A failed install never leaves a partial app directory behind.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Replace an installed app with the same name")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	source := args[0]
	s := getService()

	var res service.Result
	if isLocalOrURL(source) {
		res = s.Install(cmd.Context(), source, installForce)
	} else {
		res = s.InstallFromRemote(cmd.Context(), source, installForce)
	}
	return report(cmd, res)
}

// isLocalOrURL reports whether source should be installed directly rather
// than looked up in the remote index.
func isLocalOrURL(source string) bool {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return true
	}
	_, err := os.Stat(source)
	return err == nil
}
