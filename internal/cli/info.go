package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clapp-dev/clapp/internal/manifest"
)

var infoRemote bool

func init() {
	infoCmd.Flags().BoolVar(&infoRemote, "remote", false, "Look the app up in the remote index")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(whereCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show an app's manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		out := cmd.OutOrStdout()
		s := getService()

		if infoRemote {
			rec, ok := s.GetPackageInfo(cmd.Context(), name)
			if !ok {
				return fmt.Errorf("%s not found in remote index", name)
			}
			printManifest(cmd, rec.Manifest())
			if rec.Author != "" {
				fmt.Fprintf(out, "Author:       %s\n", rec.Author)
			}
			fmt.Fprintf(out, "Download:     %s\n", rec.DownloadURL)
			return nil
		}

		m, ok := s.GetManifest(name)
		if !ok {
			return fmt.Errorf("%s is not installed", name)
		}
		printManifest(cmd, m)
		path, _ := s.Where(name)
		fmt.Fprintf(out, "Path:         %s\n", path)
		return nil
	},
}

var whereCmd = &cobra.Command{
	Use:   "where <name>",
	Short: "Print the install directory of an app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, ok := getService().Where(args[0])
		if !ok {
			return fmt.Errorf("%s is not installed", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func printManifest(cmd *cobra.Command, m *manifest.Manifest) {
	out := cmd.OutOrStdout()
	deps := "-"
	if len(m.Dependencies) > 0 {
		deps = strings.Join(m.Dependencies, ", ")
	}
	fmt.Fprintf(out, "Name:         %s\n", m.Name)
	fmt.Fprintf(out, "Version:      %s\n", m.Version)
	fmt.Fprintf(out, "Language:     %s\n", m.Language)
	fmt.Fprintf(out, "Entry:        %s\n", m.Entry)
	fmt.Fprintf(out, "Description:  %s\n", m.Description)
	fmt.Fprintf(out, "Dependencies: %s\n", deps)
}
