package agentcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/utils"
)

// threadClient is the thread management part of *orchestrate.Client.
type threadClient interface {
	ListThreads(ctx context.Context, agentID string) ([]orchestrate.Thread, error)
	CreateThread(ctx context.Context, agentID string) (*orchestrate.Thread, error)
	DeleteThread(ctx context.Context, id string) error
	GetThreadMessages(ctx context.Context, id string) ([]orchestrate.Message, error)
}

func newThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Manage agent conversation threads",
	}

	cmd.AddCommand(threadSubcommand("list <agent-id>", "List an agent's threads", runListThreads))
	cmd.AddCommand(threadSubcommand("create <agent-id>", "Create an empty thread for an agent", runCreateThread))
	cmd.AddCommand(threadSubcommand("delete <thread-id>", "Delete a thread", runDeleteThread))
	cmd.AddCommand(threadSubcommand("messages <thread-id>", "Print the messages in a thread", runThreadMessages))

	return cmd
}

type threadRunner func(ctx context.Context, client threadClient, id string, out io.Writer) error

func threadSubcommand(use, short string, run threadRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load(cmd)
			if err != nil {
				return err
			}

			client, err := s.Orchestrate(cmd.Context())
			if err != nil {
				return err
			}

			return run(cmd.Context(), client, args[0], cmd.OutOrStdout())
		},
	}
}

func runListThreads(ctx context.Context, client threadClient, agentID string, out io.Writer) error {
	threads, err := client.ListThreads(ctx, agentID)
	if err != nil {
		return err
	}

	if len(threads) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("No threads found."))
		return nil
	}

	for _, t := range threads {
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.NameStyle.Render(t.ID),
			utils.Truncate(utils.OneLine(title), 50),
			cliui.DimStyle.Render(fmt.Sprintf("%d messages", t.MessageCount)),
		)
	}
	return nil
}

func runCreateThread(ctx context.Context, client threadClient, agentID string, out io.Writer) error {
	t, err := client.CreateThread(ctx, agentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s Created thread %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.ID))
	return nil
}

func runDeleteThread(ctx context.Context, client threadClient, id string, out io.Writer) error {
	if err := client.DeleteThread(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s Deleted thread %s\n", cliui.SuccessMark, id)
	return nil
}

func runThreadMessages(ctx context.Context, client threadClient, id string, out io.Writer) error {
	messages, err := client.GetThreadMessages(ctx, id)
	if err != nil {
		return err
	}

	for _, m := range messages {
		fmt.Fprintf(out, "%s %s\n\n", cliui.KeyStyle.Render(m.Role+">"), m.Content)
	}
	return nil
}
