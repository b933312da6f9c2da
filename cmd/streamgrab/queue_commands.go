package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"streamgrab/internal/api"
	"streamgrab/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the download queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueActionCommand(ctx, "start", "Start downloads now, ignoring the concurrency ceiling", (*ipc.Client).QueueStart))
	queueCmd.AddCommand(newQueueActionCommand(ctx, "pause", "Pause running downloads", (*ipc.Client).QueuePause))
	queueCmd.AddCommand(newQueueActionCommand(ctx, "resume", "Return paused downloads to pending", (*ipc.Client).QueueResume))
	queueCmd.AddCommand(newQueueActionCommand(ctx, "cancel", "Cancel downloads", (*ipc.Client).QueueCancel))
	queueCmd.AddCommand(newQueueActionCommand(ctx, "remove", "Remove downloads from the queue", (*ipc.Client).QueueRemove))
	queueCmd.AddCommand(newQueueMoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueConcurrencyCommand(ctx))
	queueCmd.AddCommand(newQueueAutoStartCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var req api.EnqueueRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Queue one or more page or stream URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (req.Title != "" || req.OutputFilename != "") {
				return errors.New("--title and --filename apply to a single URL")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				added := make([]api.QueueItem, 0, len(args))
				for _, rawURL := range args {
					itemReq := req
					itemReq.URL = rawURL
					resp, err := client.QueueAdd(itemReq)
					if err != nil {
						return fmt.Errorf("queue %s: %w", rawURL, err)
					}
					added = append(added, resp.Item)
				}
				if asJSON {
					return writeJSON(cmd, api.QueueListResponse{Items: added})
				}
				out := cmd.OutOrStdout()
				for _, item := range added {
					fmt.Fprintf(out, "Queued %s (%s) as %s\n", displayTitle(item), item.Status, item.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Title, "title", "", "Title used for the output filename")
	cmd.Flags().StringVarP(&req.Quality, "quality", "q", "", "Preferred quality (1080p, 720p, best)")
	cmd.Flags().StringVarP(&req.OutputDir, "output-dir", "o", "", "Directory for the finished file")
	cmd.Flags().StringVar(&req.OutputFilename, "filename", "", "Output filename (extension is added when missing)")
	cmd.Flags().BoolVar(&req.Resolve, "resolve", false, "Scan the page for sources before queueing")
	cmd.Flags().BoolVar(&req.Start, "start", false, "Start the download immediately")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queued items as JSON")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queue items in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				return printQueueItems(cmd.OutOrStdout(), resp.Items)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queue as JSON")
	return cmd
}

func printQueueItems(out io.Writer, items []api.QueueItem) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return nil
	}
	fmt.Fprint(out, renderTable(queueListHeaders, buildQueueListRows(items, shouldColorize(out)), queueListAligns))
	return nil
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueDescribe(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Item)
				}
				out := cmd.OutOrStdout()
				for _, line := range describeLines(resp.Item) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the item as JSON")
	return cmd
}

type queueActionCall func(*ipc.Client, []string) (*ipc.QueueActionResponse, error)

func newQueueActionCommand(ctx *commandContext, name, short string, call queueActionCall) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := call(client, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, result := range resp.Items {
					fmt.Fprintln(out, actionLine(name, result))
				}
				if resp.AppliedCount == 0 {
					return fmt.Errorf("%s: no items changed", name)
				}
				return nil
			})
		},
	}
}

func actionLine(action string, result api.ItemActionResult) string {
	switch result.Outcome {
	case api.ItemActionApplied:
		return fmt.Sprintf("%s: %s ok", result.ID, action)
	case api.ItemActionNotFound:
		return fmt.Sprintf("%s: not found", result.ID)
	default:
		if result.Detail != "" {
			return fmt.Sprintf("%s: %s", result.ID, result.Detail)
		}
		return fmt.Sprintf("%s: %s", result.ID, result.Outcome)
	}
}

func newQueueMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "move <id> <up|down>",
		Short:     "Move an item up or down in display order",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueMove(args[0], args[1])
				if err != nil {
					return err
				}
				return printQueueItems(cmd.OutOrStdout(), resp.Items)
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed, failed and cancelled items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear(all)
				if err != nil {
					return err
				}
				if all {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue items\n", resp.Removed)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished items\n", resp.Removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Cancel running downloads and remove every item")
	return cmd
}

func newQueueConcurrencyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "concurrency [n]",
		Short: "Show or set how many downloads run at once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := 0
			if len(args) == 1 {
				parsed, err := strconv.Atoi(strings.TrimSpace(args[0]))
				if err != nil || parsed <= 0 {
					return fmt.Errorf("concurrency must be a positive integer, got %q", args[0])
				}
				value = parsed
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueConcurrency(value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Max concurrent downloads: %d\n", resp.MaxConcurrent)
				return nil
			})
		},
	}
}

func newQueueAutoStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "autostart [on|off]",
		Short:     "Show or toggle automatic start of pending items",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled *bool
			if len(args) == 1 {
				value, err := parseToggle(args[0])
				if err != nil {
					return err
				}
				enabled = &value
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AutoStart(enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Auto start: %s\n", yesNo(resp.Enabled))
				return nil
			})
		},
	}
}

func parseToggle(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", value)
	}
}
