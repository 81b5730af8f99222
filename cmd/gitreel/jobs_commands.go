package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitreel/internal/api"
	"gitreel/internal/jobs"
	"gitreel/internal/store"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and cancel render jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsStatusCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live jobs and recent render history",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := listJobs(cmd, ctx, limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if list == nil {
					list = []jobs.Job{}
				}
				return writeJSON(cmd, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No render jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobTable(list))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of historical jobs to show")
	return cmd
}

// listJobs asks the daemon first and falls back to the recorded history when
// no daemon is reachable.
func listJobs(cmd *cobra.Command, ctx *commandContext, limit int) ([]jobs.Job, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return nil, err
	}
	list, err := client.ListJobs(cmd.Context(), limit)
	if err == nil {
		return list, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		return nil, err
	}
	err = ctx.withStore(func(st *store.Store) error {
		var listErr error
		list, listErr = st.ListJobs(cmd.Context(), limit)
		return listErr
	})
	return list, err
}

func newJobsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.GetJob(cmd.Context(), id)
			if errors.Is(err, api.ErrUnavailable) {
				err = ctx.withStore(func(st *store.Store) error {
					var getErr error
					job, getErr = st.GetJob(cmd.Context(), id)
					return getErr
				})
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, job)
			}
			printJobDetail(cmd.OutOrStdout(), job)
			return nil
		},
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job on the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.CancelJob(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return wrapClientError(err, cfg)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if resp.Cancelled {
				fmt.Fprintf(out, "Cancellation requested for job %s\n", resp.Job.ID)
				return nil
			}
			fmt.Fprintf(out, "Job %s is already %s\n", resp.Job.ID, resp.Job.Status)
			return nil
		},
	}
}
