package agentcmder

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
	"github.com/papercomputeco/watsonx/pkg/dotdir"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/recorder"
)

var (
	userPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	agentPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render("agent> ")
)

// messenger is the part of *orchestrate.Client the chat loop uses.
type messenger interface {
	StreamMessage(ctx context.Context, agentID, message, threadID string, onFragment func(string) error) (*orchestrate.StreamResult, error)
}

// threadState persists the last thread used with each agent.
type threadState interface {
	LoadThread(agentID, overrideDir string) (*dotdir.ThreadState, error)
	SaveThread(agentID, threadID, overrideDir string) error
	ClearThread(agentID, overrideDir string) error
}

type chatCommander struct {
	resume   bool
	threadID string

	configDir string
	threads   threadState
	pool      *recorder.Pool
}

const chatLongDesc string = `Start an interactive conversation with an orchestrate agent.

Each conversation runs in a thread. The thread id is saved after every
reply so --resume continues where the last session left off. --thread
joins a specific thread instead.

Commands inside the session:
  /new      Start a new thread
  /exit     Quit (Ctrl+D also quits)`

func newChatCmd() *cobra.Command {
	cmder := &chatCommander{threads: dotdir.NewManager()}

	cmd := &cobra.Command{
		Use:   "chat <agent-id>",
		Short: "Chat with an orchestrate agent",
		Long:  chatLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load(cmd)
			if err != nil {
				return err
			}
			cmder.configDir = s.ConfigDir

			ctx := cmd.Context()
			client, err := s.Orchestrate(ctx)
			if err != nil {
				return err
			}

			pool, closeRecorder := s.StartRecorder(ctx)
			defer closeRecorder()
			cmder.pool = pool

			return cmder.run(ctx, client, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVarP(&cmder.resume, "resume", "r", false, "Continue the last thread used with this agent")
	cmd.Flags().StringVar(&cmder.threadID, "thread", "", "Continue a specific thread")
	cmd.MarkFlagsMutuallyExclusive("resume", "thread")

	return cmd
}

// startThread returns the thread the session begins in. Empty means the
// agent opens a new one on the first message.
func (c *chatCommander) startThread(agentID string) (string, error) {
	if c.threadID != "" {
		return c.threadID, nil
	}
	if !c.resume {
		return "", nil
	}

	state, err := c.threads.LoadThread(agentID, c.configDir)
	if err != nil {
		return "", err
	}
	if state == nil {
		return "", nil
	}
	return state.ThreadID, nil
}

func (c *chatCommander) run(ctx context.Context, client messenger, agentID string, in io.Reader, out, errOut io.Writer) error {
	threadID, err := c.startThread(agentID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Agent:"), cliui.NameStyle.Render(agentID))
	if threadID != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Thread:"), cliui.DimStyle.Render(threadID))
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new for a new thread, /exit or Ctrl+D to quit."))

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
		case "/new":
			threadID = ""
			if err := c.threads.ClearThread(agentID, c.configDir); err != nil {
				fmt.Fprintf(errOut, "  %s %v\n", cliui.FailMark, err)
			}
			fmt.Fprintf(out, "  %s New thread\n\n", cliui.SuccessMark)
			continue
		}

		fmt.Fprint(out, agentPrompt)
		start := time.Now()
		res, err := client.StreamMessage(ctx, agentID, input, threadID, func(fragment string) error {
			_, werr := io.WriteString(out, fragment)
			return werr
		})

		job := recorder.NewJob(history.KindAgent, agentID, input, start, "", err)
		if res != nil {
			job.Entry.Text = res.Text
			job.Entry.ThreadID = res.ThreadID
		}
		session.Record(c.pool, job)

		if err != nil {
			fmt.Fprintf(errOut, "\n  %s %v\n", cliui.FailMark, err)
			continue
		}
		fmt.Fprint(out, "\n\n")

		if res.ThreadID != "" && res.ThreadID != threadID {
			threadID = res.ThreadID
			if err := c.threads.SaveThread(agentID, threadID, c.configDir); err != nil {
				fmt.Fprintf(errOut, "  %s %v\n", cliui.FailMark, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}
