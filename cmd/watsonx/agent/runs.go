package agentcmder

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
)

// runClient is the run tracking part of *orchestrate.Client.
type runClient interface {
	ListRuns(ctx context.Context, agentID string) ([]orchestrate.Run, error)
	GetRun(ctx context.Context, id string) (*orchestrate.Run, error)
	CancelRun(ctx context.Context, id string) error
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Track agent runs",
	}

	var agentID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, optionally for one agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := runClientFor(cmd)
			if err != nil {
				return err
			}
			return runListRuns(cmd.Context(), client, agentID, cmd.OutOrStdout())
		},
	}
	list.Flags().StringVar(&agentID, "agent", "", "Only list runs of this agent")

	cmd.AddCommand(list)
	cmd.AddCommand(runSubcommand("get <run-id>", "Show one run", runGetRun))
	cmd.AddCommand(runSubcommand("cancel <run-id>", "Cancel a run", runCancelRun))

	return cmd
}

func runClientFor(cmd *cobra.Command) (runClient, error) {
	s, err := session.Load(cmd)
	if err != nil {
		return nil, err
	}
	client, err := s.Orchestrate(cmd.Context())
	if err != nil {
		return nil, err
	}
	return client, nil
}

func runSubcommand(use, short string, run func(ctx context.Context, client runClient, id string, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := runClientFor(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), client, args[0], cmd.OutOrStdout())
		},
	}
}

func runListRuns(ctx context.Context, client runClient, agentID string, out io.Writer) error {
	runs, err := client.ListRuns(ctx, agentID)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("No runs found."))
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{runMark(r), r.ID, string(r.Status), r.AgentID, r.CreatedAt})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cliui.DimStyle).
		Headers("", "Run", "Status", "Agent", "Created").
		Rows(rows...)
	fmt.Fprintln(out, t.String())
	return nil
}

func runGetRun(ctx context.Context, client runClient, id string, out io.Writer) error {
	r, err := client.GetRun(ctx, id)
	if err != nil {
		return err
	}

	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(k), cliui.ValueStyle.Render(v))
		}
	}
	field("Run:      ", r.ID)
	field("Status:   ", runMark(*r)+" "+string(r.Status))
	field("Agent:    ", r.AgentID)
	field("Thread:   ", r.ThreadID)
	field("Created:  ", r.CreatedAt)
	field("Completed:", r.CompletedAt)
	field("Error:    ", r.Error)
	return nil
}

func runCancelRun(ctx context.Context, client runClient, id string, out io.Writer) error {
	if err := client.CancelRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s Cancelled run %s\n", cliui.SuccessMark, id)
	return nil
}

func runMark(r orchestrate.Run) string {
	switch {
	case r.Status == orchestrate.RunFailed:
		return cliui.FailMark
	case r.Finished():
		return cliui.SuccessMark
	default:
		return cliui.DimStyle.Render("…")
	}
}
