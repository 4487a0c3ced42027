package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var catalogJSON bool

func init() {
	catalogStatusCmd.Flags().BoolVar(&catalogJSON, "json", false, "Output in JSON format")
	catalogCmd.AddCommand(catalogCloneCmd)
	catalogCmd.AddCommand(catalogUpdateCmd)
	catalogCmd.AddCommand(catalogStatusCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the checkout of the package repository",
	Long: `Manage the local git checkout that "clapp publish" writes into.

The checkout lives in the publish directory (config key publish_dir). Clone
it once, then keep it current with "clapp catalog update" before publishing.`,
}

var catalogCloneCmd = &cobra.Command{
	Use:   "clone [repo-url]",
	Short: "Clone the package repository into the publish directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := ""
		if len(args) == 1 {
			url = args[0]
		}
		return report(cmd, getService().CloneCatalog(cmd.Context(), url))
	},
}

var catalogUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Pull the latest changes into the publish directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return report(cmd, getService().UpdateCatalog(cmd.Context()))
	},
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the publish directory checkout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := getService()
		st, err := s.CatalogStatus()
		if err != nil {
			return err
		}
		if catalogJSON {
			return printJSON(cmd, st)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Directory:    %s\n", st.Dir)
		if !st.Checkout {
			fmt.Fprintf(out, "Checkout:     none (run 'clapp catalog clone' to fetch %s)\n", s.CatalogRepo())
			return nil
		}
		fmt.Fprintf(out, "Remote:       %s\n", st.Remote)
		fmt.Fprintf(out, "Head:         %s\n", st.Head)
		if st.LastUpdated.IsZero() {
			fmt.Fprintln(out, "Last updated: never")
		} else {
			fmt.Fprintf(out, "Last updated: %s\n", st.LastUpdated.Format("2006-01-02 15:04"))
		}
		if st.Stale {
			fmt.Fprintln(out, "⚠ Checkout is stale. Run 'clapp catalog update'.")
		}
		return nil
	},
}
