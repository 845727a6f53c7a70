// Package historycmder provides the history command for browsing recorded
// calls.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/utils"
)

const historyLongDesc string = `Browse recorded generations, chats and agent messages.

Calls are recorded when history.driver is sqlite or postgres. With the
default memory driver nothing outlives the process, so set a persistent
driver first:

  watsonx config set history.driver sqlite

Examples:
  watsonx history list
  watsonx history list --limit 50 --json
  watsonx history show 4f1c2a9e-...`

const historyShortDesc string = "Browse recorded calls"

type reader interface {
	List(ctx context.Context, limit int) ([]*history.Entry, error)
	Get(ctx context.Context, id string) (*history.Entry, error)
}

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store reader) error) error {
	s, err := session.Load(cmd, config.FlagHistoryDriver, config.FlagHistoryDSN)
	if err != nil {
		return err
	}

	if s.HistoryDriver() == history.DriverMemory {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s history.driver is memory; nothing is persisted between runs.\n",
			cliui.WarnStyle.Render("!"))
	}

	ctx := cmd.Context()
	store, err := s.OpenHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(ctx, store)
}

func addStoreFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, new(string))
}

func newListCmd() *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent calls, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store reader) error {
				return runList(ctx, store, cmd.OutOrStdout(), limit, jsonOut)
			})
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")

	return cmd
}

func newShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, store reader) error {
				return runShow(ctx, store, cmd.OutOrStdout(), args[0], jsonOut)
			})
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the entry as JSON")

	return cmd
}

func runList(ctx context.Context, store reader, out io.Writer, limit int, jsonOut bool) error {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("No recorded calls."))
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		var err error
		if e.Failed() {
			err = errors.New(e.Error)
		}
		rows = append(rows, []string{
			cliui.Mark(err),
			e.ID,
			e.CreatedAt.Local().Format("Jan 02 15:04"),
			string(e.Kind),
			utils.Truncate(e.Model, 28),
			utils.Truncate(utils.OneLine(e.Prompt), 40),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cliui.DimStyle).
		Headers("", "ID", "When", "Kind", "Model", "Prompt").
		Rows(rows...)
	fmt.Fprintln(out, t.String())
	return nil
}

func runShow(ctx context.Context, store reader, out io.Writer, id string, jsonOut bool) error {
	e, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	}

	field := func(k, v string) {
		if v != "" {
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(k), cliui.ValueStyle.Render(v))
		}
	}

	fmt.Fprintln(out)
	field("ID:      ", e.ID)
	field("Kind:    ", string(e.Kind))
	field("Model:   ", e.Model)
	field("Thread:  ", e.ThreadID)
	field("When:    ", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	field("Duration:", fmt.Sprintf("%dms", e.DurationMs))

	fmt.Fprintf(out, "\n  %s\n%s\n", cliui.HeaderStyle.Render("Prompt"), e.Prompt)
	if e.Failed() {
		fmt.Fprintf(out, "\n  %s\n%s\n", cliui.HeaderStyle.Render("Error"), cliui.ErrorStyle.Render(e.Error))
	} else {
		fmt.Fprintf(out, "\n  %s\n%s\n", cliui.HeaderStyle.Render("Response"), e.Text)
	}
	fmt.Fprintln(out)
	return nil
}
