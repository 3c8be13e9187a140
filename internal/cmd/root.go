package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosanma1/chartpack/internal/config"
)

var (
	configPath  string
	envFilePath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "chartpack",
	Short: "Build, package and deploy chart extensions",
	Long: `chartpack compiles a chart extension, copies its descriptor, zips the result
and optionally replaces the extension on the repository service.

Charts live in chart/<name>/ (index.js and index.qext); output goes to dist/.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&envFilePath, "env-file", config.DotEnvFile, "Path to an optional .env file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
}
