package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reel/internal/config"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "fetch <download-id>",
		Short: "Save a finished download to the local filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destDir, err := resolveOutputDir(outputFlag)
			if err != nil {
				return err
			}

			// Stream into a scratch file first; the server names the
			// attachment, and the rename makes the result atomic.
			tmp, err := os.CreateTemp(destDir, ".reel-fetch-*")
			if err != nil {
				return fmt.Errorf("create scratch file: %w", err)
			}
			tmpPath := tmp.Name()
			defer os.Remove(tmpPath)

			filename, err := ctx.apiClient().FetchFile(cmd.Context(), args[0], tmp)
			if cerr := tmp.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("flush scratch file: %w", cerr)
			}
			if err != nil {
				return err
			}
			if filename == "" {
				filename = args[0]
			}

			target := filepath.Join(destDir, filepath.Base(filename))
			if err := os.Rename(tmpPath, target); err != nil {
				return fmt.Errorf("move download into place: %w", err)
			}

			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("stat downloaded file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", target, humanize.IBytes(uint64(info.Size())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Directory to save the file into (defaults to the working directory)")
	return cmd
}

func resolveOutputDir(flag string) (string, error) {
	trimmed := strings.TrimSpace(flag)
	if trimmed == "" {
		return os.Getwd()
	}
	expanded, err := config.ExpandPath(trimmed)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output path %q is not a directory", expanded)
	}
	return expanded, nil
}
