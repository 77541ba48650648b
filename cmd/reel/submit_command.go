package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/jobs"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var formatFlag string
	var wait bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a video URL for download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			platform, err := resolvePlatform(url, platformFlag)
			if err != nil {
				return err
			}

			client := ctx.apiClient()
			resp, err := client.Submit(cmd.Context(), api.DownloadRequest{
				URL:      url,
				Platform: platform,
				Format:   formatFlag,
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			switch resp.Status {
			case "in_progress":
				fmt.Fprintf(stdout, "Already downloading (id %s)\n", resp.DownloadID)
			default:
				fmt.Fprintf(stdout, "Download started (id %s)\n", resp.DownloadID)
			}

			if !wait {
				return nil
			}
			return pollUntilDone(cmd.Context(), client, resp.DownloadID, stdout)
		},
	}

	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Source platform (youtube or tiktok; inferred from the URL when omitted)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "mp4", "Output format (mp3 for audio, mp4 for video)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the download finishes")
	return cmd
}

func resolvePlatform(url, flag string) (string, error) {
	if trimmed := strings.TrimSpace(flag); trimmed != "" {
		return trimmed, nil
	}
	platform, err := jobs.PlatformForURL(url)
	if err != nil {
		return "", fmt.Errorf("could not infer platform (pass --platform): %w", err)
	}
	return string(platform), nil
}

// pollUntilDone reports progress roughly every two seconds until the job
// reaches a terminal state.
func pollUntilDone(ctx context.Context, client *api.Client, id string, stdout io.Writer) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		progress, err := client.Progress(ctx, id)
		if err != nil {
			return err
		}
		switch progress.Status {
		case "completed":
			filename := ""
			if progress.Filename != nil {
				filename = *progress.Filename
			}
			fmt.Fprintf(stdout, "Completed: %s\n", filename)
			return nil
		case "error":
			message := "download failed"
			if progress.Error != nil {
				message = *progress.Error
			}
			return fmt.Errorf("download failed: %s", message)
		default:
			fmt.Fprintf(stdout, "Downloading... %.1f%%\n", progress.Progress)
		}
	}
}
