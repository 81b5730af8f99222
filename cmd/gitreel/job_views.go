package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gitreel/internal/jobs"
)

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatProgress(job jobs.Job) string {
	return fmt.Sprintf("%.0f%%", job.ProgressPercent)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func jobDuration(job jobs.Job) string {
	if job.StartedAt == nil {
		return "-"
	}
	end := time.Now()
	if job.FinishedAt != nil {
		end = *job.FinishedAt
	}
	return end.Sub(*job.StartedAt).Round(time.Second).String()
}

func jobLabel(job jobs.Job) string {
	if name := strings.TrimSpace(job.ProjectName); name != "" {
		return name
	}
	return strings.Join(job.RepositoryIDs, ", ")
}

func buildJobRows(list []jobs.Job) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			shortID(job.ID),
			string(job.Status),
			formatProgress(job),
			jobLabel(job),
			job.ProfileID,
			formatTimestamp(job.CreatedAt),
			jobDuration(job),
		})
	}
	return rows
}

func renderJobTable(list []jobs.Job) string {
	return renderTable(
		[]string{"ID", "Status", "Progress", "Project", "Profile", "Created", "Elapsed"},
		buildJobRows(list),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func printJobDetail(out io.Writer, job jobs.Job) {
	fmt.Fprintf(out, "Job:        %s\n", job.ID)
	fmt.Fprintf(out, "Status:     %s\n", job.Status)
	fmt.Fprintf(out, "Progress:   %s\n", formatProgress(job))
	fmt.Fprintf(out, "Project:    %s\n", jobLabel(job))
	fmt.Fprintf(out, "Profile:    %s\n", job.ProfileID)
	fmt.Fprintf(out, "Interactive: %s\n", yesNo(job.Interactive))
	fmt.Fprintf(out, "Created:    %s\n", formatTimestamp(job.CreatedAt))
	if job.StartedAt != nil {
		fmt.Fprintf(out, "Started:    %s\n", formatTimestamp(*job.StartedAt))
	}
	if job.FinishedAt != nil {
		fmt.Fprintf(out, "Finished:   %s\n", formatTimestamp(*job.FinishedAt))
	}
	if job.OutputPath != "" {
		fmt.Fprintf(out, "Output:     %s\n", job.OutputPath)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s (%s)\n", job.ErrorMessage, job.ErrorKind)
	}
	for _, w := range job.Warnings {
		fmt.Fprintf(out, "Warning:    %s\n", w)
	}
}
