// Package configcmder provides the config command for managing persistent
// watsonx configuration stored in the .watsonx/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
)

const configLongDesc string = `Manage persistent watsonx configuration.

Configuration is stored as config.toml in the .watsonx/ directory and
provides default values for command flags. CLI flags and WATSONX_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  watsonx.project_id, watsonx.api_url, watsonx.iam_url,
  watsonx.api_version, watsonx.timeout_secs, watsonx.model,
  watsonx.max_tokens,
  orchestrate.instance_id, orchestrate.region, orchestrate.url,
  orchestrate.timeout_secs,
  gateway.listen, history.driver, history.dsn,
  events.kafka_brokers, events.kafka_topic, batch.concurrency

Use subcommands to initialize, get, set, or list configuration values:
  watsonx config init [--preset <region>]  Write a fresh config file
  watsonx config set <key> <value>         Set a configuration value
  watsonx config get <key>                 Get a configuration value
  watsonx config list                      List all configuration values

Examples:
  watsonx config init --preset eu-de
  watsonx config set watsonx.project_id 0a1b2c3d
  watsonx config get watsonx.model
  watsonx config list`

const configShortDesc string = "Manage persistent watsonx configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, cfger *config.Configer) {
	target := cfger.GetTarget()
	if target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
