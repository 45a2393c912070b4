package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/output"
	"github.com/jackzampolin/tablescan/internal/svcctx"
	"github.com/jackzampolin/tablescan/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "tablescan",
	Short: "Extract summary and transaction tables from scanned documents",
	Long: `Tablescan submits documents to AWS Textract, rebuilds the tables found in
the analysis blocks and maps them onto a fixed schema.

Each table is classified as either:
  - a summary table (key/value account details), or
  - a transaction table whose header maps onto the document profile's fields

Results are written as JSON, YAML or XLSX, and every job is recorded locally
so it can be re-extracted later without another analysis run.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.tablescan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "tablescan home directory (default: ~/.tablescan)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)",
	)

	// Set output format and load services before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		output.SetFormat(outputFormat)
		if cmd.Annotations[skipServices] != "" {
			return nil
		}
		s, err := loadServices()
		if err != nil {
			return err
		}
		cmd.SetContext(svcctx.WithServices(cmd.Context(), s))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}
