package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clapp-dev/clapp/internal/remote"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the remote index",
	Long: `Search remote packages by name and description, ignoring case.
Without a query every remote package is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		records := getService().SearchPackages(cmd.Context(), query)
		return printRecords(cmd, records, searchJSON, fmt.Sprintf("No packages match %q.", query))
	},
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect the remote index",
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every package in the remote index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := getService()
		records := s.ListRemotePackages(cmd.Context())
		return printRecords(cmd, records, searchJSON, "No remote packages (index "+s.Settings().IndexURL+").")
	},
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	remoteListCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	remoteCmd.AddCommand(remoteListCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(remoteCmd)
}

func printRecords(cmd *cobra.Command, records []remote.Record, asJSON bool, empty string) error {
	if asJSON {
		if records == nil {
			records = []remote.Record{}
		}
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), empty)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tLANGUAGE\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Version, r.Language, r.Description)
	}
	return w.Flush()
}
