package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamgrab/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test ntfy notification from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					return fmt.Errorf("notification not sent: %s", dashIfEmpty(resp.Message))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent: %s\n", resp.Message)
				return nil
			})
		},
	}
}
