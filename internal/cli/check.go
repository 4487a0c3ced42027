package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/clapp-dev/clapp/internal/manifest"
)

var (
	depsJSON       bool
	checkJSON      bool
	validateSchema bool
)

func init() {
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "Output in JSON format")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
	validateCmd.Flags().BoolVar(&validateSchema, "schema", false, "Print the manifest fields instead of validating")
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(validateCmd)
}

var depsCmd = &cobra.Command{
	Use:   "deps <name>",
	Short: "Show how an app's dependencies resolve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := getService().Resolve(args[0])
		if err != nil {
			return err
		}
		if depsJSON {
			return printJSON(cmd, rep)
		}
		fmt.Fprint(cmd.OutOrStdout(), rep.String())
		if !rep.OK() {
			return errSilent
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"doctor"},
	Short:   "Check every installed app and the remote index",
	Long: `Resolve the dependencies of every installed app, list app directories
with invalid manifests and check that the remote index is reachable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getService().Health(cmd.Context())
		if err != nil {
			return err
		}
		if checkJSON {
			if err := printJSON(cmd, h); err != nil {
				return err
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), h.String())
		}
		if !h.OK() {
			return errSilent
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [folder]",
	Short: "Validate an app folder before installing or publishing it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if validateSchema {
			printSchema(cmd)
			return nil
		}
		folder := "."
		if len(args) == 1 {
			folder = args[0]
		}
		errs := getService().Validate(folder)
		fmt.Fprintln(out, manifest.Summary(errs))
		if len(errs) > 0 {
			return errSilent
		}
		return nil
	},
}

func printSchema(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	desc := manifest.SchemaDescription()
	for _, group := range []string{"required", "optional"} {
		fmt.Fprintf(out, "%s:\n", group)
		fields := make([]string, 0, len(desc[group]))
		for f := range desc[group] {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(out, "  %-13s %s\n", f, desc[group][f])
		}
	}
}
