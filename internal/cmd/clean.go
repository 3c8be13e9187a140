package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/ui"
)

var (
	cleanAll bool
	cleanYes bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean [chart]",
	Short: "Remove build output",
	Long: `Remove dist/<name>/ and dist/<name>.zip for a chart.

Use --all to remove the whole output directory (asks for confirmation unless --yes).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Remove the whole output directory")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout := cfg.ChartLayout()

	if cleanAll {
		if !cleanYes && ui.IsInteractive(os.Stdin) {
			prompter, err := ui.NewPrompter()
			if err != nil {
				return err
			}
			ok, err := prompter.AskConfirm(fmt.Sprintf("Remove %s and everything in it?", layout.OutputRoot), false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}
		if err := removePath(out, layout.OutputRoot); err != nil {
			return err
		}
		ui.Success(out, "Clean completed successfully")
		return nil
	}

	name := chartArg(args)
	if name == "" {
		return chart.ErrChartNotSpecified
	}
	if err := chart.CheckName(name); err != nil {
		return err
	}

	for _, path := range []string{layout.OutputDir(name), layout.ArchivePath(name)} {
		if err := removePath(out, path); err != nil {
			return err
		}
	}

	ui.Success(out, "Clean completed successfully")
	return nil
}

func removePath(w io.Writer, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	ui.Step(w, "🗑️ ", "Removing %s...", path)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
