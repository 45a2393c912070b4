package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/tablescan/internal/output"
	"github.com/jackzampolin/tablescan/internal/textract"
	"github.com/jackzampolin/tablescan/internal/tracker"
)

var statusWait bool

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the state of an analysis job",
	Long: `Show the state of an analysis job.

With --wait the job is polled until it finishes. A tracked job's stored
status is updated with the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jobID := args[0]

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return err
		}
		client, err := a.textractClient(awsCfg, "")
		if err != nil {
			return err
		}

		var st textract.JobStatus
		if statusWait {
			st, err = client.Wait(ctx, jobID)
		} else {
			st, err = client.Status(ctx, jobID)
		}
		if err != nil && !errors.Is(err, textract.ErrJobFailed) {
			return err
		}

		if tr, terr := a.openTracker(); terr == nil {
			if uerr := tr.UpdateStatus(ctx, jobID, string(st.State), ""); uerr != nil && !errors.Is(uerr, tracker.ErrNotFound) {
				a.logger.Warn("failed to update tracked job", "job_id", jobID, "error", uerr)
			}
			tr.Close()
		}

		if perr := output.Print(st); perr != nil {
			return perr
		}
		return err
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWait, "wait", false, "poll until the job finishes")

	rootCmd.AddCommand(statusCmd)
}
