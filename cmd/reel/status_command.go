package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reel/internal/deps"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newStatusPrinter(cmd.OutOrStdout())

			out.section("Daemon")
			client := ctx.apiClient()
			health, err := client.Health(cmd.Context())
			if err != nil {
				out.line(statusError, "API", fmt.Sprintf("unreachable at %s: %v", client.BaseURL(), err))
			} else {
				out.line(statusOK, "API", client.BaseURL())
				out.line(statusInfo, "Active downloads", fmt.Sprintf("%d", health.ActiveJobs))
				out.line(statusInfo, "Download dir", health.TempDir)
				out.line(statusInfo, "Disk free", humanize.IBytes(health.DiskFreeBytes))
			}
			out.blank()

			out.section("Dependencies")
			cfg := ctx.configValue()
			if cfg == nil {
				out.line(statusError, "Configuration", "not loaded")
				return nil
			}
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if status.Available {
					out.line(statusOK, status.Name, status.Command)
				} else {
					out.line(statusError, status.Name, status.Detail)
				}
			}
			return nil
		},
	}
}
