package cli

import (
	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:     "upgrade <name>",
	Aliases: []string{"update"},
	Short:   "Reinstall an app when the remote index lists another version",
	Long: `Compare the installed version of an app with the one in the remote index
and reinstall from the index when the two differ. Versions are compared as
plain strings, so a different remote version may also be older.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(cmd, getService().Upgrade(cmd.Context(), args[0]))
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}
