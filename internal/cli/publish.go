package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	publishPush bool
	packageOut  string
)

func init() {
	publishCmd.Flags().BoolVar(&publishPush, "push", false, "Commit and push the publish repository")
	packageCmd.Flags().StringVarP(&packageOut, "output", "o", ".", "Directory to write the archive to")
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(packageCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish <folder>",
	Short: "Stage an app into the publish repository and rebuild its index",
	Long: `Validate an app folder, copy it to packages/<name> in the publish
repository (config key publish_dir), write dist/<name>-<version>.clapp.zip
and rebuild index.json. With --push the repository is committed and pushed.

A failed push leaves the staged files in place; run publish again with
--push to retry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, pr := getService().Publish(cmd.Context(), args[0], publishPush)
		if err := report(cmd, res); err != nil {
			return err
		}
		if pr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  archive: %s\n  index:   %s\n", pr.ArchivePath, pr.IndexPath)
			if pr.Partial() {
				return errSilent
			}
		}
		return nil
	},
}

var packageCmd = &cobra.Command{
	Use:   "package <folder>",
	Short: "Build a .clapp.zip archive from an app folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _ := getService().CreatePackageFromDirectory(cmd.Context(), args[0], packageOut)
		return report(cmd, res)
	},
}
