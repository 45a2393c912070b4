package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/export"
	"github.com/jackzampolin/tablescan/internal/output"
	"github.com/jackzampolin/tablescan/internal/pipeline"
)

var (
	analyzeUpload   string
	analyzeBucket   string
	analyzeProfile  string
	analyzeMode     string
	analyzeNoNotify bool
	analyzeOut      string
	analyzeFormat   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [key]",
	Short: "Analyze a document and extract its tables",
	Long: `Run a document through Textract and extract its summary and transactions.

The document is read from the configured bucket under key. With --upload the
local file is uploaded first; key then defaults to the file's base name.

The job waits for completion on a temporary SNS topic and SQS queue when
notifications are enabled and a role ARN is configured, and polls otherwise.

Examples:
  tablescan analyze statements/march.pdf
  tablescan analyze --upload ./march.pdf --out march.xlsx
  tablescan analyze march.pdf --profile bank_statement --no-notify`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}

		req := pipeline.Request{
			LocalFile: analyzeUpload,
			Bucket:    analyzeBucket,
			Profile:   analyzeProfile,
			OutPath:   analyzeOut,
			Notify:    a.cfg.Notifications.Enabled && !analyzeNoNotify,
		}
		if len(args) == 1 {
			req.Key = args[0]
		}
		if req.Key == "" && req.LocalFile == "" {
			return fmt.Errorf("a document key or --upload is required")
		}
		if req.Profile == "" {
			req.Profile = a.cfg.Defaults.Profile
		}
		if analyzeFormat != "" {
			if req.Format, err = export.ParseFormat(analyzeFormat); err != nil {
				return err
			}
		} else if analyzeOut == "" {
			req.Format, _ = export.ParseFormat(a.cfg.Defaults.OutputFormat)
		}

		r, tr, err := a.runner(cmd.Context(), analyzeMode)
		if err != nil {
			return err
		}
		defer tr.Close()

		out, err := r.Process(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := output.Print(out); err != nil {
			return err
		}
		export.Describe(cmd.ErrOrStderr(), out.Result)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUpload, "upload", "", "local file to upload before analysis")
	analyzeCmd.Flags().StringVar(&analyzeBucket, "bucket", "", "bucket holding the document (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "", "document profile (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "textract mode: analysis or detection (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeNoNotify, "no-notify", false, "poll for completion instead of using SNS/SQS")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "result file (default: ~/.tablescan/exports/<profile>_data.<format>)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "result format: json, yaml or xlsx (default from --out extension)")

	rootCmd.AddCommand(analyzeCmd)
}
