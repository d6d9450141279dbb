package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/spf13/cobra"
)

func newMessagesCmd(g *globals) *cobra.Command {
	messagesCmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "Post, reserve and delete messages",
	}

	messagesCmd.AddCommand(
		newPostCmd(g),
		newReserveCmd(g),
		newPeekCmd(g),
		newGetMessageCmd(g),
		newTouchCmd(g),
		newReleaseCmd(g),
		newDeleteMessageCmd(g),
		newDeleteBatchCmd(g),
	)
	return messagesCmd
}

func newPostCmd(g *globals) *cobra.Command {
	var timeout, delay, expiresIn int
	cmd := &cobra.Command{
		Use:   "post <queue> [body...]",
		Short: "Post messages; a single '-' body reads stdin",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bodies := args[1:]
			if len(bodies) == 1 && bodies[0] == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				bodies = []string{strings.TrimRight(string(raw), "\n")}
			}

			// Only flags given on the command line are sent.
			var opts []mq.MessageOption
			if cmd.Flags().Changed("timeout") {
				opts = append(opts, mq.WithTimeout(timeout))
			}
			if cmd.Flags().Changed("delay") {
				opts = append(opts, mq.WithDelay(delay))
			}
			if cmd.Flags().Changed("expires-in") {
				opts = append(opts, mq.WithExpiresIn(expiresIn))
			}

			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.PostBodies(cmd.Context(), args[0], bodies, opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", mq.DefaultMessageTimeout, "reservation timeout in seconds")
	cmd.Flags().IntVar(&delay, "delay", mq.DefaultMessageDelay, "seconds before the message is available")
	cmd.Flags().IntVar(&expiresIn, "expires-in", 0, "seconds the message is kept")
	return cmd
}

func newReserveCmd(g *globals) *cobra.Command {
	var n, timeout, wait int
	cmd := &cobra.Command{
		Use:   "reserve <queue>",
		Short: "Reserve messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			msgs, err := client.ReserveMessages(cmd.Context(), args[0], n, timeout, wait)
			if err != nil {
				return err
			}
			if msgs == nil {
				msgs = []mq.QueueMessage{}
			}
			return printJSON(cmd.OutOrStdout(), msgs)
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "maximum number of messages")
	cmd.Flags().IntVar(&timeout, "timeout", mq.DefaultMessageTimeout, "reservation timeout in seconds")
	cmd.Flags().IntVarP(&wait, "wait", "w", 0, "long-poll seconds")
	return cmd
}

func newPeekCmd(g *globals) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "peek <queue>",
		Short: "Show upcoming messages without reserving them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			msgs, err := client.PeekMessages(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			if msgs == nil {
				msgs = []mq.QueueMessage{}
			}
			return printJSON(cmd.OutOrStdout(), msgs)
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "maximum number of messages")
	return cmd
}

func newGetMessageCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <queue> <message-id>",
		Short: "Fetch a message by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			msg, err := client.GetMessageByID(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), msg)
		},
	}
}

func newTouchCmd(g *globals) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:   "touch <queue> <message-id> <reservation-id>",
		Short: "Extend a reservation; prints the new reservation id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.TouchMessage(cmd.Context(), args[0], args[1], args[2], timeout)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 0, "new reservation length in seconds (0 keeps the server default)")
	return cmd
}

func newReleaseCmd(g *globals) *cobra.Command {
	var delay int
	cmd := &cobra.Command{
		Use:   "release <queue> <message-id> <reservation-id>",
		Short: "Put a reserved message back on the queue",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.ReleaseMessage(cmd.Context(), args[0], args[1], args[2], delay)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().IntVar(&delay, "delay", 0, "seconds before the message is available again")
	return cmd
}

func newDeleteMessageCmd(g *globals) *cobra.Command {
	var reservationID string
	cmd := &cobra.Command{
		Use:   "delete <queue> <message-id>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.DeleteMessage(cmd.Context(), args[0], args[1], reservationID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&reservationID, "reservation-id", "r", "", "reservation id, required for reserved messages")
	return cmd
}

func newDeleteBatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-batch <queue> <id[:reservation-id]>...",
		Short: "Delete several messages in one request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := make([]mq.MessageRef, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, reservation, _ := strings.Cut(raw, ":")
				refs = append(refs, mq.MessageRef{ID: id, ReservationID: reservation})
			}

			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.DeleteMessages(cmd.Context(), args[0], refs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
