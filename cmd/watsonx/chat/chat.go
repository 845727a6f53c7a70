// Package chatcmder provides the chat command for interactive chat with a
// watsonx.ai model.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// chatter is the part of *watsonx.Client the command uses.
type chatter interface {
	ChatCompletionStream(ctx context.Context, messages []watsonx.ChatMessage, cfg watsonx.ChatCompletionConfig, onFragment func(string) error) (*watsonx.ChatCompletionResult, error)
}

type chatCommander struct {
	model       string
	maxTokens   uint
	system      string
	temperature float64

	pool *recorder.Pool
}

const chatLongDesc string = `Start an interactive chat session with a watsonx.ai model.

Replies stream as they are generated. The whole conversation is sent
with every turn so the model keeps context.

Commands inside the session:
  /reset    Forget the conversation (the system prompt is kept)
  /exit     Quit (Ctrl+D also quits)

Examples:
  watsonx chat
  watsonx chat --model ibm/granite-3-8b-instruct --system "Answer tersely"`

const chatShortDesc string = "Interactive chat with a watsonx.ai model"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Load(cmd, config.FlagModel, config.FlagMaxTokens)
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

			return cmder.run(ctx, client, s.GenerationConfig(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, &cmder.maxTokens)
	cmd.Flags().StringVar(&cmder.system, "system", "", "System prompt sent before the conversation")
	cmd.Flags().Float64Var(&cmder.temperature, "temperature", watsonx.DefaultChatCompletionConfig().Temperature, "Sampling temperature")

	return cmd
}

func (c *chatCommander) chatConfig(gen watsonx.GenerationConfig) watsonx.ChatCompletionConfig {
	cfg := watsonx.DefaultChatCompletionConfig()
	cfg.ModelID = gen.ModelID
	cfg.MaxTokens = gen.MaxTokens
	cfg.Timeout = gen.Timeout
	cfg.Temperature = c.temperature
	return cfg
}

func (c *chatCommander) initialMessages() []watsonx.ChatMessage {
	if c.system == "" {
		return nil
	}
	return []watsonx.ChatMessage{watsonx.SystemMessage(c.system)}
}

func (c *chatCommander) run(ctx context.Context, client chatter, gen watsonx.GenerationConfig, in io.Reader, out, errOut io.Writer) error {
	cfg := c.chatConfig(gen)
	messages := c.initialMessages()

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Model:"), cliui.NameStyle.Render(cfg.ModelID))
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(out)
			return nil
		case "/reset":
			messages = c.initialMessages()
			fmt.Fprintf(out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		messages = append(messages, watsonx.UserMessage(input))

		fmt.Fprint(out, assistantPrompt)
		start := time.Now()
		res, err := client.ChatCompletionStream(ctx, messages, cfg, func(fragment string) error {
			_, werr := io.WriteString(out, fragment)
			return werr
		})

		var reply string
		if res != nil {
			reply = res.Content
		}
		session.Record(c.pool, recorder.NewJob(history.KindChat, cfg.ModelID, input, start, reply, err))

		if err != nil {
			fmt.Fprintf(errOut, "\n  %s %v\n", cliui.FailMark, err)
			// drop the failed turn so it can be retried
			messages = messages[:len(messages)-1]
			continue
		}

		messages = append(messages, watsonx.AssistantMessage(reply))
		fmt.Fprint(out, "\n\n")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}
