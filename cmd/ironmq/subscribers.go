package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/spf13/cobra"
)

// parseSubscribers turns "name=url" (or a bare url) into subscribers.
func parseSubscribers(raw []string) []mq.Subscriber {
	subs := make([]mq.Subscriber, 0, len(raw))
	for _, r := range raw {
		name, url, ok := strings.Cut(r, "=")
		if !ok || strings.Contains(name, "/") {
			subs = append(subs, mq.Subscriber{Name: strings.TrimSpace(r), URL: strings.TrimSpace(r)})
			continue
		}
		subs = append(subs, mq.Subscriber{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return subs
}

func newSubscribersCmd(g *globals) *cobra.Command {
	subsCmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Manage push queue subscribers",
	}

	type op func(c *mq.Client, ctx context.Context, queue string, subs []mq.Subscriber) (*mq.Result, error)
	build := func(use, short string, fn op) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <queue> <name=url>...",
			Short: short,
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := g.client(nil)
				if err != nil {
					return err
				}
				res, err := fn(client, cmd.Context(), args[0], parseSubscribers(args[1:]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			},
		}
	}

	subsCmd.AddCommand(
		build("add", "Add subscribers to a push queue", (*mq.Client).AddSubscribers),
		build("replace", "Replace every subscriber of a push queue", (*mq.Client).ReplaceSubscribers),
		build("remove", "Remove subscribers from a push queue", (*mq.Client).RemoveSubscribers),
	)
	return subsCmd
}

func newAlertsCmd(g *globals) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage pull queue alerts",
	}

	var alert mq.Alert
	setCmd := &cobra.Command{
		Use:   "set <queue>",
		Short: "Replace the alerts of a pull queue with one alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if alert.Queue == "" || alert.Trigger <= 0 {
				return fmt.Errorf("--queue and a positive --trigger are required")
			}
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			q, err := client.UpdateAlerts(cmd.Context(), args[0], []mq.Alert{alert})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}
	setCmd.Flags().StringVar(&alert.Type, "type", "fixed", "alert type: fixed or progressive")
	setCmd.Flags().StringVar(&alert.Direction, "direction", "asc", "trigger direction: asc or desc")
	setCmd.Flags().IntVar(&alert.Trigger, "trigger", 0, "queue size that fires the alert")
	setCmd.Flags().StringVar(&alert.Queue, "queue", "", "queue receiving alert notifications")
	setCmd.Flags().IntVar(&alert.Snooze, "snooze", 0, "seconds between repeated alerts")

	clearCmd := &cobra.Command{
		Use:   "clear <queue>",
		Short: "Remove every alert of a pull queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			q, err := client.UpdateAlerts(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <queue> <alert-id>",
		Short: "Remove one alert by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.DeleteAlertByID(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	alertsCmd.AddCommand(setCmd, clearCmd, deleteCmd)
	return alertsCmd
}

func newPushStatusCmd(g *globals) *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push-status",
		Short: "Inspect and acknowledge push deliveries",
	}

	getCmd := &cobra.Command{
		Use:   "get <queue> <message-id>",
		Short: "Show per-subscriber delivery state of a push message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			statuses, err := client.GetPushStatuses(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), statuses)
		},
	}

	var reservationID string
	deleteCmd := &cobra.Command{
		Use:   "delete <queue> <message-id> <subscriber-name>",
		Short: "Acknowledge a push message for one subscriber",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.DeletePushMessage(cmd.Context(), args[0], args[1], reservationID, args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	deleteCmd.Flags().StringVar(&reservationID, "reservation-id", "", "reservation id of the push delivery")

	pushCmd.AddCommand(getCmd, deleteCmd)
	return pushCmd
}
