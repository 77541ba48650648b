package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress <download-id>",
		Short: "Show the state of a download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.apiClient()
			stdout := cmd.OutOrStdout()

			progress, err := client.Progress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, progress)
			}

			printProgress(stdout, progress.Status, progress.Progress, progress.Filename, progress.Error)
			if !watch || progress.Status != "downloading" {
				return nil
			}
			return pollUntilDone(cmd.Context(), client, args[0], stdout)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep polling until the download finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw progress payload as JSON")
	return cmd
}

func printProgress(stdout io.Writer, status string, percent float64, filename, errMessage *string) {
	switch status {
	case "completed":
		name := ""
		if filename != nil {
			name = *filename
		}
		fmt.Fprintf(stdout, "completed  %s\n", name)
	case "error":
		message := ""
		if errMessage != nil {
			message = *errMessage
		}
		fmt.Fprintf(stdout, "error  %s\n", message)
	default:
		fmt.Fprintf(stdout, "downloading  %.1f%%\n", percent)
	}
}
