package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <name>",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove an installed app",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !uninstallYes {
			fmt.Fprintf(cmd.OutOrStdout(), "? Remove %s? (y/N) ", name)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			answer := ""
			if scanner.Scan() {
				answer = strings.TrimSpace(strings.ToLower(scanner.Text()))
			}
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Uninstall cancelled.")
				return nil
			}
		}
		return report(cmd, getService().Uninstall(name))
	},
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(uninstallCmd)
}
