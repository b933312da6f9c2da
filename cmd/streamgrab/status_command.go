package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamgrab/internal/ipc"
	"streamgrab/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var status *ipc.StatusResponse
			if client, dialErr := ctx.dialClient(); dialErr == nil {
				status, err = client.Status()
				client.Close()
				if err != nil {
					return err
				}
			}

			if asJSON {
				if status == nil {
					return writeJSON(cmd, map[string]any{"running": false, "socketPath": ctx.socketPath()})
				}
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status == nil {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, "Not running", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
				if status.APIAddress != "" {
					fmt.Fprintln(stdout, renderStatusLine("HTTP API", statusOK, "http://"+status.APIAddress, colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("HTTP API", statusWarn, "Disabled", colorize))
				}
				dispatch := fmt.Sprintf("auto start %s, %d dispatched", yesNo(status.Dispatcher.AutoStart), status.Dispatcher.Dispatched)
				kind := statusOK
				if status.Dispatcher.LastError != "" {
					kind = statusWarn
					dispatch += ", last error: " + status.Dispatcher.LastError
				}
				fmt.Fprintln(stdout, renderStatusLine("Dispatcher", kind, dispatch, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("System Checks", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range checkLines(preflight.RunAll(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(stdout, line)
			}

			if status == nil {
				return nil
			}
			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintf(stdout, "%d active of %d slots\n", status.Queue.Active, status.Queue.MaxConcurrent)
			rows := buildQueueStatusRows(status.Queue.Counts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the daemon status as JSON")
	return cmd
}
