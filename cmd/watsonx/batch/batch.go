// Package batchcmder provides the batch command for running many prompts
// concurrently.
package batchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/utils"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// answerWidth bounds the answer column of the results table.
const answerWidth = 60

// batcher is the part of *watsonx.Client the command uses.
type batcher interface {
	GenerateBatch(ctx context.Context, reqs []watsonx.BatchRequest, cfg watsonx.GenerationConfig) (*watsonx.BatchGenerationResult, error)
}

type batchCommander struct {
	model       string
	maxTokens   uint
	concurrency uint
	jsonOut     bool

	pool *recorder.Pool
}

// itemOutput is one line of --json output.
type itemOutput struct {
	Index      int    `json:"index"`
	Prompt     string `json:"prompt"`
	Text       string `json:"text,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
	TokensUsed uint32 `json:"tokens_used,omitempty"`
	Error      string `json:"error,omitempty"`
}

const batchLongDesc string = `Run one generation per prompt, concurrently.

Prompts are read one per line from the given file, or from stdin when no
file (or "-") is given. Blank lines and lines starting with "#" are
skipped. A failing prompt never affects the others; the command exits
non-zero when any prompt failed.

Examples:
  watsonx batch prompts.txt
  watsonx batch --concurrency 4 --json prompts.txt > answers.jsonl
  printf 'one\ntwo\n' | watsonx batch`

const batchShortDesc string = "Run many prompts concurrently"

func NewBatchCmd() *cobra.Command {
	cmder := &batchCommander{}

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: batchShortDesc,
		Long:  batchLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := readPrompts(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			s, err := session.Load(cmd, config.FlagModel, config.FlagMaxTokens, config.FlagConcurrency)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := s.Watsonx(ctx)
			if err != nil {
				return err
			}

			pool, closeRecorder := s.StartRecorder(ctx)
			defer closeRecorder()
			cmder.pool = pool

			return cmder.run(ctx, client, cmd.OutOrStdout(), prompts, s.GenerationConfig())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	config.AddUintFlag(cmd, config.Flags, config.FlagConcurrency, &cmder.concurrency)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print one JSON object per prompt")

	return cmd
}

func readPrompts(args []string, stdin io.Reader) ([]string, error) {
	in := stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening prompts: %w", err)
		}
		defer f.Close()
		in = f
	}

	prompts, err := session.ReadLines(in)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts given")
	}
	return prompts, nil
}

func (c *batchCommander) run(ctx context.Context, client batcher, out io.Writer, prompts []string, cfg watsonx.GenerationConfig) error {
	reqs := make([]watsonx.BatchRequest, len(prompts))
	for i, p := range prompts {
		reqs[i] = watsonx.NewBatchRequest(p).WithID(strconv.Itoa(i + 1))
	}

	start := time.Now()
	res, err := client.GenerateBatch(ctx, reqs, cfg)
	if err != nil {
		return err
	}

	for _, item := range res.Results {
		var text string
		if item.Result != nil {
			text = item.Result.Text
		}
		session.Record(c.pool, recorder.NewJob(history.KindBatch, cfg.ModelID, item.Prompt, start, text, item.Err))
	}

	if c.jsonOut {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else {
		writeTable(out, res)
	}

	if res.AnyFailed() {
		return fmt.Errorf("%d of %d prompts failed", res.Failed, res.Total)
	}
	return nil
}

func writeJSON(out io.Writer, res *watsonx.BatchGenerationResult) error {
	enc := json.NewEncoder(out)
	for i, item := range res.Results {
		line := itemOutput{Index: i + 1, Prompt: item.Prompt}
		if item.Result != nil {
			line.Text = item.Result.Text
			line.ModelID = item.Result.ModelID
			line.TokensUsed = item.Result.TokensUsed
		}
		if item.Err != nil {
			line.Error = item.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
	}
	return nil
}

func writeTable(out io.Writer, res *watsonx.BatchGenerationResult) {
	rows := make([][]string, 0, len(res.Results))
	for i, item := range res.Results {
		answer := ""
		tokens := ""
		if item.Result != nil {
			answer = utils.Truncate(utils.OneLine(item.Result.Text), answerWidth)
			tokens = strconv.FormatUint(uint64(item.Result.TokensUsed), 10)
		} else {
			answer = cliui.ErrorStyle.Render(utils.Truncate(utils.OneLine(item.Err.Error()), answerWidth))
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			cliui.Mark(item.Err),
			utils.Truncate(utils.OneLine(item.Prompt), 30),
			tokens,
			answer,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cliui.DimStyle).
		Headers("#", "", "Prompt", "Tokens", "Answer").
		Rows(rows...)

	fmt.Fprintln(out, t.String())
	fmt.Fprintf(out, "  %s %d/%d succeeded %s\n",
		cliui.Mark(errIfFailed(res)),
		res.Successful,
		res.Total,
		cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(res.Duration))),
	)
}

func errIfFailed(res *watsonx.BatchGenerationResult) error {
	if res.AnyFailed() {
		return fmt.Errorf("%d failed", res.Failed)
	}
	return nil
}
