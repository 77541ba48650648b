package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List downloads the daemon currently tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.apiClient().Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, api.JobsResponse{Jobs: jobs})
			}

			stdout := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(stdout, "No downloads tracked")
				return nil
			}
			headers := table.Row{"ID", "Platform", "Status", "Progress", "Size", "Speed", "Name"}
			fmt.Fprintln(stdout, renderTable(headers, buildJobRows(jobs), 3, 4, 5))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the jobs listing as JSON")
	return cmd
}

func buildJobRows(jobs []api.Job) []table.Row {
	rows := make([]table.Row, 0, len(jobs))
	for _, job := range jobs {
		name := job.Filename
		if name == "" {
			name = job.URL
		}
		rows = append(rows, table.Row{
			shortID(job.ID),
			job.Platform,
			job.Status,
			fmt.Sprintf("%.0f%%", job.Progress),
			formatBytes(job.TotalBytes),
			formatSpeed(job.Status, job.Speed),
			name,
		})
	}
	return rows
}

// shortID trims UUIDs to their first block for table display; full IDs stay
// available through --json.
func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func formatSpeed(status string, speed float64) string {
	if status != "downloading" || speed <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(speed)) + "/s"
}
