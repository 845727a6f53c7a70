// Package watsonxcmder
package watsonxcmder

import (
	"github.com/spf13/cobra"

	versioncmder "github.com/papercomputeco/watsonx/cmd/version"
	agentcmder "github.com/papercomputeco/watsonx/cmd/watsonx/agent"
	authcmder "github.com/papercomputeco/watsonx/cmd/watsonx/auth"
	batchcmder "github.com/papercomputeco/watsonx/cmd/watsonx/batch"
	chatcmder "github.com/papercomputeco/watsonx/cmd/watsonx/chat"
	configcmder "github.com/papercomputeco/watsonx/cmd/watsonx/config"
	generatecmder "github.com/papercomputeco/watsonx/cmd/watsonx/generate"
	historycmder "github.com/papercomputeco/watsonx/cmd/watsonx/history"
	modelscmder "github.com/papercomputeco/watsonx/cmd/watsonx/models"
	servecmder "github.com/papercomputeco/watsonx/cmd/watsonx/serve"
	"github.com/papercomputeco/watsonx/pkg/cliui"
)

const watsonxLongDesc string = `watsonx is a command line client for IBM watsonx.ai and Watson Orchestrate.

Generate text, chat, run batches and talk to orchestrate agents:
  watsonx generate "prompt"     Generate text (add --stream to stream)
  watsonx chat                  Interactive chat
  watsonx batch prompts.txt     Run one generation per line
  watsonx agent chat <id>       Chat with an orchestrate agent
  watsonx serve                 Run the local HTTP and MCP gateway

Credentials come from the environment (WATSONX_API_KEY, WXO_API_KEY) or
from "watsonx auth".`

const watsonxShortDesc string = "watsonx - IBM watsonx.ai from the terminal"

func NewWatsonxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "watsonx",
		Short:         watsonxShortDesc,
		Long:          watsonxLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cliui.UseProfileFor(cmd.OutOrStdout())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .watsonx/ config directory")

	// Add subcommands
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(batchcmder.NewBatchCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(agentcmder.NewAgentCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
