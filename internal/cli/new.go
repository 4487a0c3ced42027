package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clapp-dev/clapp/internal/manifest"
	"github.com/clapp-dev/clapp/internal/scaffold"
)

var (
	newLanguage  string
	newOutputDir string
)

func init() {
	newCmd.Flags().StringVarP(&newLanguage, "language", "l", manifest.LanguagePython, "App language (python or lua)")
	newCmd.Flags().StringVar(&newOutputDir, "output-dir", "", "Output directory (default: ./<name>)")
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a new app",
	Long: `Create a new app folder with a manifest, an entry file and a README.

Examples:
  clapp new hello-world
  clapp new calc --language lua`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !manifest.IsSupportedLanguage(newLanguage) {
			return fmt.Errorf("--language must be python or lua, got %q", newLanguage)
		}

		outDir := newOutputDir
		if outDir == "" {
			outDir = filepath.Join(".", name)
		}

		result, err := scaffold.Generate(scaffold.NewData(name, newLanguage), outDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s app in %s\n", newLanguage, result.OutputDir)
		for _, f := range result.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "  ⚠ %s\n", w)
		}
		fmt.Fprintf(out, "\nNext: clapp validate %s && clapp install %s\n", result.OutputDir, result.OutputDir)
		return nil
	},
}
