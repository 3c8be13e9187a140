package cmd

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dosanma1/chartpack/internal/config"
	"github.com/dosanma1/chartpack/internal/generator"
	"github.com/dosanma1/chartpack/internal/ui"
)

var (
	newTitle  string
	newAuthor string
	newForce  bool
	newDryRun bool
)

var newCmd = &cobra.Command{
	Use:   "new [chart]",
	Short: "Scaffold a new chart",
	Long: `Create chart/<name>/ with an entry module, a render helper and a descriptor
that passes validation.

Examples:
  chartpack new widget-chart
  chartpack new widget-chart --title "Widget" --author "Data team"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVar(&newTitle, "title", "", "Display name written to the descriptor")
	newCmd.Flags().StringVar(&newAuthor, "author", "", "Author written to the descriptor")
	newCmd.Flags().BoolVar(&newForce, "force", false, "Overwrite an existing chart")
	newCmd.Flags().BoolVar(&newDryRun, "dry-run", false, "Show what would be created")
}

func runNew(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	g, err := generator.Get("chart")
	if err != nil {
		return err
	}

	data := map[string]any{}
	if newTitle != "" {
		data["Title"] = newTitle
	}
	if newAuthor != "" {
		data["Author"] = newAuthor
	}

	name := chartArg(args)
	if err := g.Generate(cmd.Context(), generator.GeneratorOptions{
		Layout: cfg.ChartLayout(),
		Name:   name,
		Data:   data,
		Force:  newForce,
		DryRun: newDryRun,
	}); err != nil {
		return err
	}

	if !newDryRun {
		if err := writeDefaultConfig(out); err != nil {
			return err
		}
		ui.Success(out, "Created %s", cfg.ChartLayout().SourceDir(name))
		ui.Hint(out, "Next: chartpack build %s --watch", name)
	}
	return nil
}

// writeDefaultConfig creates the config file with defaults unless it exists.
// Environment overrides are left out so credentials never reach the file.
func writeDefaultConfig(w io.Writer) error {
	if _, err := os.Stat(configPath); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := config.Default().Save(configPath); err != nil {
		return err
	}
	ui.Step(w, ui.IconTool, "Wrote %s", configPath)
	return nil
}
