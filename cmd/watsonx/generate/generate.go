// Package generatecmder provides the generate command for one-shot text
// generation.
package generatecmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// Presets accepted by --preset.
const (
	presetQuick = "quick"
	presetLong  = "long"
)

// generator is the part of *watsonx.Client the command uses.
type generator interface {
	GenerateWithConfig(ctx context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error)
	GenerateText(ctx context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error)
	GenerateTextStream(ctx context.Context, prompt string, cfg watsonx.GenerationConfig, onFragment func(string) error) (*watsonx.GenerationResult, error)
}

type generateCommander struct {
	model     string
	maxTokens uint
	stream    bool
	raw       bool
	markdown  bool
	preset    string
	stops     []string
	verbose   bool

	pool *recorder.Pool
}

const generateLongDesc string = `Generate text from a prompt with a watsonx.ai foundation model.

The prompt is taken from the arguments, or read from stdin when no
arguments (or a single "-") are given.

By default the answer is cleaned up before printing: echoed prompt
text, leading labels and repeated lines are removed. Use --raw to print
the model output untouched, or --stream to print fragments as they
arrive.

Examples:
  watsonx generate "Explain SSE in one sentence"
  watsonx generate --stream --preset long "Write a short story"
  cat prompt.txt | watsonx generate --markdown`

const generateShortDesc string = "Generate text from a prompt"

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := session.PromptFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			s, err := session.Load(cmd, config.FlagModel, config.FlagMaxTokens)
			if err != nil {
				return err
			}

			cfg, err := cmder.generationConfig(s.GenerationConfig())
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

			return cmder.run(ctx, client, cmd.OutOrStdout(), prompt, cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	cmd.Flags().BoolVarP(&cmder.stream, "stream", "s", false, "Print fragments as they arrive")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the model output without cleanup")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the answer as markdown")
	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Generation preset: quick or long")
	cmd.Flags().StringSliceVar(&cmder.stops, "stop", nil, "Stop sequence (repeatable)")
	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Print model, token and timing details")

	cmd.MarkFlagsMutuallyExclusive("stream", "markdown")

	return cmd
}

// generationConfig applies --preset and --stop to base. Model and token
// flags already reached base through viper.
func (c *generateCommander) generationConfig(base watsonx.GenerationConfig) (watsonx.GenerationConfig, error) {
	cfg := base
	switch c.preset {
	case "":
	case presetQuick:
		cfg = watsonx.QuickResponse().WithModel(base.ModelID)
	case presetLong:
		cfg = watsonx.LongForm().WithModel(base.ModelID)
	default:
		return base, fmt.Errorf("unknown preset %q (available: quick, long)", c.preset)
	}

	if len(c.stops) > 0 {
		cfg = cfg.WithStopSequences(c.stops...)
	}
	return cfg, nil
}

func (c *generateCommander) run(ctx context.Context, gen generator, out io.Writer, prompt string, cfg watsonx.GenerationConfig) error {
	start := time.Now()

	var (
		res  *watsonx.GenerationResult
		kind = history.KindGenerate
		err  error
	)

	switch {
	case c.stream:
		kind = history.KindStream
		res, err = gen.GenerateTextStream(ctx, prompt, cfg, func(fragment string) error {
			_, werr := io.WriteString(out, fragment)
			return werr
		})
		if err == nil {
			fmt.Fprintln(out)
		}
	case c.raw:
		res, err = gen.GenerateText(ctx, prompt, cfg)
	default:
		res, err = gen.GenerateWithConfig(ctx, prompt, cfg)
	}

	var text string
	if res != nil {
		text = res.Text
	}
	session.Record(c.pool, recorder.NewJob(kind, cfg.ModelID, prompt, start, text, err))

	if err != nil {
		return err
	}

	if !c.stream {
		if err := c.print(out, res.Text); err != nil {
			return err
		}
	}

	if c.verbose {
		fmt.Fprintf(out, "\n  %s %s  %s %d  %s %s  %s %.2f\n",
			cliui.KeyStyle.Render("model"), cliui.ValueStyle.Render(res.ModelID),
			cliui.KeyStyle.Render("tokens"), res.TokensUsed,
			cliui.KeyStyle.Render("time"), cliui.FormatDuration(res.Duration),
			cliui.KeyStyle.Render("quality"), res.QualityScore,
		)
	}
	return nil
}

func (c *generateCommander) print(out io.Writer, text string) error {
	if c.markdown {
		rendered, err := cliui.RenderMarkdown(text)
		if err == nil {
			text = rendered
		}
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
