package main

import (
	"github.com/samvad-hq/ironmq-go/pkg/mq"
	"github.com/spf13/cobra"
)

func newQueuesCmd(g *globals) *cobra.Command {
	queuesCmd := &cobra.Command{
		Use:   "queues",
		Short: "List and manage queues",
	}

	var (
		previous string
		perPage  int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of queues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			queues, err := client.ListQueues(cmd.Context(), previous, perPage)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), queues)
		},
	}
	listCmd.Flags().StringVar(&previous, "previous", "", "name of the last queue of the previous page")
	listCmd.Flags().IntVarP(&perPage, "per-page", "n", mq.DefaultQueuesPerPage, "queues per page")

	getCmd := &cobra.Command{
		Use:   "get <queue>",
		Short: "Show a queue and its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			q, err := client.GetQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <queue>",
		Short: "Create a queue",
		Args:  cobra.ExactArgs(1),
	}
	createOpts := bindQueueFlags(createCmd)
	createCmd.RunE = func(cmd *cobra.Command, args []string) error {
		client, err := g.client(nil)
		if err != nil {
			return err
		}
		q, err := client.CreateQueue(cmd.Context(), args[0], createOpts.info())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	}

	updateCmd := &cobra.Command{
		Use:   "update <queue>",
		Short: "Update queue attributes",
		Args:  cobra.ExactArgs(1),
	}
	updateOpts := bindQueueFlags(updateCmd)
	updateCmd.RunE = func(cmd *cobra.Command, args []string) error {
		client, err := g.client(nil)
		if err != nil {
			return err
		}
		q, err := client.UpdateQueue(cmd.Context(), args[0], updateOpts.info())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <queue>",
		Short: "Delete a queue and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.DeleteQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <queue>",
		Short: "Delete every message but keep the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client(nil)
			if err != nil {
				return err
			}
			res, err := client.ClearQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	queuesCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, clearCmd)
	return queuesCmd
}

type queueFlags struct {
	typ               string
	messageTimeout    int
	messageExpiration int
	subscribers       []string
	retries           int
	retriesDelay      int
	errorQueue        string
}

func bindQueueFlags(cmd *cobra.Command) *queueFlags {
	f := &queueFlags{}
	flags := cmd.Flags()
	flags.StringVar(&f.typ, "type", "", "queue type: pull, unicast or multicast")
	flags.IntVar(&f.messageTimeout, "message-timeout", 0, "default reservation timeout in seconds")
	flags.IntVar(&f.messageExpiration, "message-expiration", 0, "default message expiration in seconds")
	flags.StringSliceVar(&f.subscribers, "subscriber", nil, "push subscriber as name=url (repeatable)")
	flags.IntVar(&f.retries, "retries", 0, "push retries")
	flags.IntVar(&f.retriesDelay, "retries-delay", 0, "seconds between push retries")
	flags.StringVar(&f.errorQueue, "error-queue", "", "queue receiving failed push messages")
	return f
}

func (f *queueFlags) info() mq.QueueInfo {
	info := mq.QueueInfo{
		Type:              f.typ,
		MessageTimeout:    f.messageTimeout,
		MessageExpiration: f.messageExpiration,
	}
	if len(f.subscribers) > 0 || f.retries > 0 || f.retriesDelay > 0 || f.errorQueue != "" {
		info.Push = &mq.PushInfo{
			Subscribers:  parseSubscribers(f.subscribers),
			Retries:      f.retries,
			RetriesDelay: f.retriesDelay,
			ErrorQueue:   f.errorQueue,
		}
	}
	return info
}
