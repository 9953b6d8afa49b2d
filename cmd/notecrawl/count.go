package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/notecrawl/internal/config"
	"github.com/nao1215/notecrawl/internal/media"
	"github.com/nao1215/notecrawl/internal/model"
)

// NewCountCmd creates the count command.
func NewCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [dir]",
		Short: "Print the number of media files in a directory",
		Long: `Count walks the media directory recursively and prints how many files
would count toward a crawl target, together with their total size.

Examples:
  # Count images in the default media directory
  notecrawl count

  # Count images and videos in ./media
  notecrawl count ./media --kind all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCountCmd,
	}

	cmd.Flags().String("kind", string(model.MediaImage), "Media to count: image, video, all")

	return cmd
}

// runCountCmd executes the count command.
func runCountCmd(cmd *cobra.Command, args []string) error {
	dir := config.DefaultMediaDir()
	if len(args) == 1 {
		dir = args[0]
	}

	name, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind, err := model.ParseMediaKind(name)
	if err != nil {
		return err
	}

	files, err := media.NewCounter(kind).Files(dir)
	if err != nil {
		return fmt.Errorf("failed to count media in %s: %w", dir, err)
	}

	var total uint64
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		total += uint64(info.Size()) //nolint:gosec // file sizes are non-negative
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s files (%s) in %s\n",
		humanize.Comma(int64(len(files))), kind, humanize.Bytes(total), dir)
	return nil
}
