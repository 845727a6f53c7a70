// Package modelscmder provides the models command.
package modelscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/utils"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

type modelLister interface {
	ListModels(ctx context.Context) ([]watsonx.ModelInfo, error)
}

type modelsCommander struct {
	all     bool
	task    string
	jsonOut bool
}

const modelsLongDesc string = `List the foundation models offered in the configured region.

Only available models are shown unless --all is given. Use --task to keep
models that support a given task, such as "text_generation" or
"text_chat".`

const modelsShortDesc string = "List foundation models"

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Load(cmd)
			if err != nil {
				return err
			}

			client, err := s.Watsonx(cmd.Context())
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), client, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&cmder.all, "all", "a", false, "Include models that are not available")
	cmd.Flags().StringVar(&cmder.task, "task", "", "Only list models supporting this task")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print models as JSON")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, client modelLister, out io.Writer) error {
	infos, err := client.ListModels(ctx)
	if err != nil {
		return err
	}

	infos = c.filter(infos)
	sort.Slice(infos, func(i, j int) bool { return infos[i].ModelID < infos[j].ModelID })

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("No models matched."))
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		status := cliui.SuccessMark
		if !info.Available {
			status = cliui.DimStyle.Render("-")
		}
		rows = append(rows, []string{
			status,
			cliui.NameStyle.Render(info.ModelID),
			info.Provider,
			utils.Truncate(strings.Join(info.SupportedTasks, ","), 40),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cliui.DimStyle).
		Headers("", "Model", "Provider", "Tasks").
		Rows(rows...)
	fmt.Fprintln(out, t.String())
	return nil
}

func (c *modelsCommander) filter(infos []watsonx.ModelInfo) []watsonx.ModelInfo {
	kept := make([]watsonx.ModelInfo, 0, len(infos))
	for _, info := range infos {
		if !c.all && !info.Available {
			continue
		}
		if c.task != "" && !hasTask(info, c.task) {
			continue
		}
		kept = append(kept, info)
	}
	return kept
}

func hasTask(info watsonx.ModelInfo, task string) bool {
	for _, t := range info.SupportedTasks {
		if t == task {
			return true
		}
	}
	return false
}
