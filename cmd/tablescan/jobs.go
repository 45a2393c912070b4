package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/metrics"
	"github.com/jackzampolin/tablescan/internal/output"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect tracked analysis jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		tr, err := a.openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		jobs, err := tr.Recent(cmd.Context(), jobsLimit)
		if err != nil {
			return err
		}
		return output.Print(jobs)
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		tr, err := a.openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		job, err := tr.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Print(job)
	},
}

var jobsFileCmd = &cobra.Command{
	Use:   "file <file-name>",
	Short: "Show the latest job for a document file name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		tr, err := a.openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()

		job, err := tr.ForFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output.Print(job)
	},
}

var jobsMetricsCmd = &cobra.Command{
	Use:   "metrics <job-id>",
	Short: "Show stage timings recorded for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		tr, err := a.openTracker()
		if err != nil {
			return err
		}
		defer tr.Close()
		rec, err := metrics.NewRecorder(tr.DB())
		if err != nil {
			return err
		}

		f := metrics.Filter{JobID: args[0]}
		list, err := rec.List(cmd.Context(), f, 0)
		if err != nil {
			return err
		}
		stages, err := rec.StageStats(cmd.Context(), f)
		if err != nil {
			return err
		}
		return output.Print(map[string]any{
			"summary": metrics.Summarize(list),
			"stages":  stages,
			"metrics": list,
		})
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 10, "maximum number of jobs")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsFileCmd)
	jobsCmd.AddCommand(jobsMetricsCmd)
	rootCmd.AddCommand(jobsCmd)
}
