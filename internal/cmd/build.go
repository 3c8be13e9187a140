package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dosanma1/chartpack/internal/archive"
	"github.com/dosanma1/chartpack/internal/chart"
	"github.com/dosanma1/chartpack/internal/compiler"
	"github.com/dosanma1/chartpack/internal/deployer"
	"github.com/dosanma1/chartpack/internal/descriptor"
	"github.com/dosanma1/chartpack/internal/pipeline"
	"github.com/dosanma1/chartpack/internal/ui"
)

var (
	buildWatch  bool
	buildDeploy bool
	buildYes    bool
)

var buildCmd = &cobra.Command{
	Use:   "build [chart]",
	Short: "Compile, package and optionally deploy a chart",
	Long: `Compile chart/<name>/index.js into dist/<name>/<name>.js, copy the descriptor
next to it and zip the directory into dist/<name>.zip.

With --deploy the archive replaces the extension on the repository service:
the existing extension is deleted first, then the archive is uploaded.

Examples:
  chartpack build widget-chart                    # Build once
  chartpack build widget-chart --watch            # Rebuild on every change
  chartpack build widget-chart --deploy --yes     # Build and deploy without asking
  chartpack build widget-chart --watch --deploy   # Redeploy after every rebuild`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Rebuild when sources change until interrupted")
	buildCmd.Flags().BoolVarP(&buildDeploy, "deploy", "d", false, "Deploy the archive after every successful build")
	buildCmd.Flags().BoolVarP(&buildYes, "yes", "y", false, "Deploy without asking for confirmation")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout := cfg.ChartLayout()

	req := chart.NewBuildRequest(chartArg(args), buildWatch, buildDeploy)
	if err := layout.Validate(req); err != nil {
		return err
	}

	if req.Deploy {
		if err := cfg.ValidateDeploy(); err != nil {
			return err
		}
		if !buildYes && ui.IsInteractive(os.Stdin) {
			prompter, err := ui.NewPrompter()
			if err != nil {
				return err
			}
			ok, err := prompter.AskConfirm(fmt.Sprintf("Deploy %s to %s?", req.Name, cfg.Remote.BaseURL), true)
			if err != nil {
				return err
			}
			if !ok {
				ui.Warning(out, "Deploy skipped, building only")
				req.Deploy = false
			}
		}
	}

	c, err := compiler.New(cfg.CompilerOptions(logger, ui.IsInteractive(os.Stderr)))
	if err != nil {
		return err
	}
	ac := compiler.NewArtifactCompiler(c, layout, logger)
	ac.Reports = cmd.ErrOrStderr()

	var dep deployer.Deployer
	if req.Deploy {
		dep, err = deployer.GetDeployer(cfg.Deployer, cfg.Remote, layout, logger)
		if err != nil {
			return err
		}
		if q, ok := dep.(*deployer.QRSDeployer); ok && ui.IsInteractive(os.Stderr) {
			q.Progress = os.Stderr
		}
	}

	p := pipeline.New(pipeline.Options{
		Layout:   layout,
		Compiler: ac,
		Copier:   pipeline.StageFunc(descriptor.NewCopier(layout, !cfg.Descriptor.SkipValidation, logger).Copy),
		Archiver: pipeline.StageFunc(archive.NewArchiver(layout, logger).Archive),
		Deployer: dep,
		Logger:   logger,
		OnState:  stateReporter(out),
	})

	if req.Watch {
		ui.Title(out, ui.IconWatch, "Watching %s (%s), press Ctrl+C to stop", req.Name, req.Mode())
	} else {
		ui.Title(out, ui.IconPackage, "Building %s (%s)", req.Name, req.Mode())
	}

	if err := p.Run(ctx, req); err != nil {
		return err
	}

	if req.Watch {
		ui.Hint(out, "Stopped watching %s", req.Name)
		return nil
	}
	ui.Success(out, "Archive written to %s", layout.ArchivePath(req.Name))
	return nil
}
