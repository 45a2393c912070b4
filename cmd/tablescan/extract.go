package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/blocks"
	"github.com/jackzampolin/tablescan/internal/export"
	"github.com/jackzampolin/tablescan/internal/output"
	"github.com/jackzampolin/tablescan/internal/pipeline"
	"github.com/jackzampolin/tablescan/internal/statement"
)

var (
	extractBlocks  string
	extractProfile string
	extractOut     string
	extractFormat  string
	extractExplain bool
	extractRefresh bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [job-id]",
	Short: "Extract tables from a finished job or a saved block file",
	Long: `Extract the summary and transactions from analysis blocks.

Blocks come from a finished job (cached under ~/.tablescan/blocks after the
first fetch) or, with --blocks, from a saved Textract response file. A block
file is processed locally without AWS access; without --out its result is
written to stdout.

Examples:
  tablescan extract 4f1c...e2 --out march.xlsx
  tablescan extract --blocks response.json
  tablescan extract --blocks response.json --explain -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (extractBlocks != "") {
			return fmt.Errorf("give either a job id or --blocks")
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		profileName := extractProfile
		var format export.Format
		if extractFormat != "" {
			if format, err = export.ParseFormat(extractFormat); err != nil {
				return err
			}
		}

		if extractBlocks != "" {
			if profileName == "" {
				profileName = a.cfg.Defaults.Profile
			}
			return extractFile(cmd, a, profileName, format)
		}

		r, tr, err := a.runner(cmd.Context(), "")
		if err != nil {
			return err
		}
		defer tr.Close()

		out, err := r.Extract(cmd.Context(), pipeline.ExtractRequest{
			JobID:   args[0],
			Profile: profileName,
			OutPath: extractOut,
			Format:  format,
			Refresh: extractRefresh,
		})
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

func extractFile(cmd *cobra.Command, a *app, profileName string, format export.Format) error {
	p, err := a.profiles.Get(profileName)
	if err != nil {
		return err
	}
	bs, err := blocks.LoadFile(extractBlocks)
	if err != nil {
		return err
	}

	res, reports := statement.NewExtractor(p, a.logger).Explain(bs)
	if extractExplain {
		if err := output.Print(reports); err != nil {
			return err
		}
	}

	if extractOut == "" {
		if extractExplain {
			return nil
		}
		if format == "" {
			format = export.FormatJSON
		}
		if format == export.FormatXLSX {
			return fmt.Errorf("xlsx output needs --out")
		}
		return export.Write(os.Stdout, res, format)
	}
	if err := export.Save(extractOut, res, format); err != nil {
		return err
	}
	a.logger.Info("result saved", "path", extractOut)
	export.Describe(cmd.ErrOrStderr(), res)
	return nil
}

func init() {
	extractCmd.Flags().StringVar(&extractBlocks, "blocks", "", "saved Textract response or block array to read instead of a job")
	extractCmd.Flags().StringVar(&extractProfile, "profile", "", "document profile (default: the job's, then config)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "result file")
	extractCmd.Flags().StringVar(&extractFormat, "format", "", "result format: json, yaml or xlsx (default from --out extension)")
	extractCmd.Flags().BoolVar(&extractExplain, "explain", false, "print how each table was classified")
	extractCmd.Flags().BoolVar(&extractRefresh, "refresh", false, "fetch blocks again instead of using the cache")

	rootCmd.AddCommand(extractCmd)
}
