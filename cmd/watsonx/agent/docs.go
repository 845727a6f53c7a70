package agentcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
)

// docsClient is the chat with documents part of *orchestrate.Client.
type docsClient interface {
	ChatWithDocs(ctx context.Context, agentID, threadID string, req orchestrate.ChatWithDocsRequest) (*orchestrate.ChatWithDocsResponse, error)
	StreamChatWithDocs(ctx context.Context, agentID, threadID string, req orchestrate.ChatWithDocsRequest, onFragment func(string) error) (*orchestrate.StreamResult, error)
	GetChatWithDocsStatus(ctx context.Context, agentID, threadID string) (*orchestrate.ChatWithDocsStatus, error)
}

type docsCommander struct {
	file         string
	documentPath string
	stream       bool
	status       bool
}

func newDocsCmd() *cobra.Command {
	cmder := &docsCommander{}

	cmd := &cobra.Command{
		Use:   "docs <agent-id> <thread-id> [question]",
		Short: "Ask an agent about documents within a thread",
		Long: `Ask an agent a question about a document.

The document is sent inline from --file, or referenced by --document-path
when the instance already stores it. The question is read from stdin when
it is not given as arguments. --status prints the thread's document
knowledge base instead.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.Load(cmd)
			if err != nil {
				return err
			}

			client, err := s.Orchestrate(cmd.Context())
			if err != nil {
				return err
			}

			return cmder.run(cmd.Context(), client, args[0], args[1], args[2:], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.file, "file", "f", "", "Send this file's content as the document")
	cmd.Flags().StringVar(&cmder.documentPath, "document-path", "", "Path of a document stored in the instance")
	cmd.Flags().BoolVarP(&cmder.stream, "stream", "s", false, "Print the answer as it arrives")
	cmd.Flags().BoolVar(&cmder.status, "status", false, "Show the thread's document status")
	cmd.MarkFlagsMutuallyExclusive("file", "document-path")

	return cmd
}

func (c *docsCommander) run(ctx context.Context, client docsClient, agentID, threadID string, args []string, in io.Reader, out io.Writer) error {
	if c.status {
		st, err := client.GetChatWithDocsStatus(ctx, agentID, threadID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Status:   "), cliui.ValueStyle.Render(st.Status))
		fmt.Fprintf(out, "  %s %d\n", cliui.KeyStyle.Render("Documents:"), st.DocumentCount)
		if st.LastUpdated != "" {
			fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Updated:  "), st.LastUpdated)
		}
		return nil
	}

	question, err := session.PromptFromArgs(args, in)
	if err != nil {
		return err
	}

	req := orchestrate.ChatWithDocsRequest{Message: question, DocumentPath: c.documentPath}
	if c.file != "" {
		data, err := os.ReadFile(c.file)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		req.DocumentContent = string(data)
	}
	if req.DocumentContent == "" && req.DocumentPath == "" {
		return errors.New("no document given; use --file or --document-path")
	}

	if c.stream {
		_, err := client.StreamChatWithDocs(ctx, agentID, threadID, req, func(s string) error {
			_, err := io.WriteString(out, s)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		return nil
	}

	res, err := client.ChatWithDocs(ctx, agentID, threadID, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.TrimSpace(res.Message))
	if len(res.DocumentsUsed) > 0 {
		fmt.Fprintln(out, cliui.DimStyle.Render("Documents: "+strings.Join(res.DocumentsUsed, ", ")))
	}
	return nil
}
