package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/descriptor"
	"github.com/dosanma1/chartpack/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [chart]",
	Short: "Validate a chart's descriptor",
	Long: `Validates chart/<name>/index.qext against the descriptor JSON Schema.
This is the same check the build runs before copying the descriptor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout := cfg.ChartLayout()

	req := chart.NewBuildRequest(chartArg(args), false, false)
	if err := layout.Validate(req); err != nil {
		return err
	}

	path := layout.DescriptorPath(req.Name)
	ui.Step(out, "🔍", "Validating %s...", path)

	err = descriptor.Validate(path)
	if err == nil {
		ui.Success(out, "%s is valid!", path)
		return nil
	}

	var verr *descriptor.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	// Print validation errors
	ui.Error(out, "Validation failed with the following errors:")
	for i, issue := range verr.Issues {
		fmt.Fprintf(out, "%d. %s\n", i+1, issue)
	}
	return fmt.Errorf("validation failed with %d errors", len(verr.Issues))
}
