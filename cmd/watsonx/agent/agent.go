// Package agentcmder provides the agent command group for talking to
// Watson Orchestrate agents.
package agentcmder

import (
	"github.com/spf13/cobra"
)

const agentLongDesc string = `Work with Watson Orchestrate agents.

The orchestrate instance is read from the [orchestrate] section of the
config file (or WXO_INSTANCE_ID). The API key comes from WXO_API_KEY, the
orchestrate entry in credentials.toml, or falls back to the watsonx key.

Examples:
  watsonx agent list
  watsonx agent chat my-agent-id
  watsonx agent chat --resume my-agent-id
  watsonx agent threads list my-agent-id
  watsonx agent runs list --agent my-agent-id
  watsonx agent docs my-agent-id thread-id --file notes.md "What changed?"`

const agentShortDesc string = "Chat with Watson Orchestrate agents"

func NewAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: agentShortDesc,
		Long:  agentLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newThreadsCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newDocsCmd())

	return cmd
}
