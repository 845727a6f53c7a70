package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/config"
)

const initLongDesc string = `Write a fresh config.toml.

Without --preset the defaults point at us-south. A preset sets the
watsonx.ai and orchestrate URLs for another region. An existing file is
only replaced with --force.

Examples:
  watsonx config init
  watsonx config init --preset jp-tok --force`

const initShortDesc string = "Write a fresh configuration file"

func newInitCmd() *cobra.Command {
	var preset string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(cmd.OutOrStdout(), configDir, preset, force)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Region preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing config file")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(out io.Writer, configDir, preset string, force bool) error {
	cfg := config.NewDefaultConfig()
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to replace it)", cfger.GetTarget())
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(cfger.GetTarget()))
	fmt.Fprintf(out, "  %s Set your project with 'watsonx config set watsonx.project_id <id>'\n\n",
		cliui.DimStyle.Render("→"))
	return nil
}
