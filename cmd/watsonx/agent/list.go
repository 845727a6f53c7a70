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

type agentLister interface {
	ListAgents(ctx context.Context) ([]orchestrate.Agent, error)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the agents in the orchestrate instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Load(cmd)
			if err != nil {
				return err
			}

			client, err := s.Orchestrate(cmd.Context())
			if err != nil {
				return err
			}

			return runList(cmd.Context(), client, cmd.OutOrStdout())
		},
	}
}

func runList(ctx context.Context, client agentLister, out io.Writer) error {
	agents, err := client.ListAgents(ctx)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("No agents found."))
		return nil
	}

	for _, a := range agents {
		name := a.Name
		if name == "" {
			name = a.ID
		}
		fmt.Fprintf(out, "  %s  %s\n", cliui.NameStyle.Render(name), cliui.DimStyle.Render(a.ID))
		if a.Description != "" {
			fmt.Fprintf(out, "    %s\n", utils.Truncate(utils.OneLine(a.Description), 80))
		}
	}
	return nil
}
