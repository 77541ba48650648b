package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Show metadata for a video without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			platform, err := resolvePlatform(url, platformFlag)
			if err != nil {
				return err
			}

			info, err := ctx.apiClient().VideoInfo(cmd.Context(), api.VideoInfoRequest{
				URL:      url,
				Platform: platform,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, info)
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Title:    %s\n", info.Title)
			fmt.Fprintf(stdout, "Channel:  %s\n", info.Channel)
			fmt.Fprintf(stdout, "Duration: %s\n", formatDuration(info.Duration))
			fmt.Fprintf(stdout, "Views:    %s\n", humanize.Comma(info.ViewCount))
			if info.UploadDate != "" {
				fmt.Fprintf(stdout, "Uploaded: %s\n", info.UploadDate)
			}
			if info.LikeCount != nil {
				fmt.Fprintf(stdout, "Likes:    %s\n", humanize.Comma(*info.LikeCount))
			}
			if info.CommentCount != nil {
				fmt.Fprintf(stdout, "Comments: %s\n", humanize.Comma(*info.CommentCount))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Source platform (youtube or tiktok; inferred from the URL when omitted)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the metadata as JSON")
	return cmd
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
