package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"streamgrab/internal/config"
	"streamgrab/internal/downloader"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Resolve a page and list its downloadable sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := localLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			res := downloader.NewFromConfig(cfg, logger).Resolver()
			info, err := res.Resolve(cmd.Context(), args[0])
			if err != nil {
				return withHint(err)
			}
			if asJSON {
				return writeJSON(cmd, info)
			}
			printVideoInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the resolved page as JSON")
	return cmd
}

func printVideoInfo(out io.Writer, info media.VideoInfo) {
	fmt.Fprintf(out, "Title:     %s\n", info.Title)
	if info.Duration != "" {
		fmt.Fprintf(out, "Duration:  %s\n", info.Duration)
	}
	if info.Thumbnail != "" {
		fmt.Fprintf(out, "Thumbnail: %s\n", info.Thumbnail)
	}
	if len(info.Qualities) > 0 {
		fmt.Fprintf(out, "Qualities: %s\n", strings.Join(info.Qualities, ", "))
	}
	rows := make([][]string, 0, len(info.Sources))
	for i, source := range info.Sources {
		rows = append(rows, []string{strconv.Itoa(i + 1), source.Quality, string(source.Type), source.URL})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Quality", "Type", "URL"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
}

// localLogger builds the logger for commands that run transfers in-process.
// Only warnings and errors reach the terminal.
func localLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  "warn",
		Format: cfg.Logging.Format,
		Writer: w,
	})
}

// withHint appends the classified next step to an error for terminal output.
func withHint(err error) error {
	if err == nil {
		return nil
	}
	if hint := services.Hint(err); hint != "" {
		return fmt.Errorf("%w\nhint: %s", err, hint)
	}
	return err
}
