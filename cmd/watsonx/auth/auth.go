// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/watsonx/pkg/cliui"
	"github.com/papercomputeco/watsonx/pkg/credentials"
)

const authLongDesc string = `Store IBM Cloud API keys.

Credentials are stored in credentials.toml in the .watsonx/ directory. An
environment variable always wins over a stored key.

Providers:
  watsonx       watsonx.ai generation and chat (WATSONX_API_KEY)
  orchestrate   Watson Orchestrate agents (WXO_API_KEY)

Examples:
  watsonx auth watsonx              Prompt for the watsonx.ai API key
  watsonx auth orchestrate          Prompt for the orchestrate API key
  watsonx auth --list               Show where each key comes from
  watsonx auth --remove watsonx     Remove the stored watsonx.ai key
  echo $KEY | watsonx auth watsonx  Pipe the API key from stdin`

const authShortDesc string = "Store IBM Cloud API keys"

type authCommander struct {
	configDir string

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder := &authCommander{
				configDir: configDir,
				in:        cmd.InOrStdin(),
				out:       cmd.OutOrStdout(),
			}

			switch {
			case listFlag:
				return cmder.runList()
			case removeFlag != "":
				return cmder.runRemove(removeFlag)
			default:
				if len(args) == 0 {
					return fmt.Errorf("provider argument required\n\nSupported providers: %s",
						strings.Join(credentials.SupportedProviders(), ", "))
				}
				return cmder.runAuth(args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.SupportedProviders(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List configured credentials")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove stored credentials for a provider")

	return cmd
}

func normalizeProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !credentials.IsSupportedProvider(provider) {
		return "", fmt.Errorf("unsupported provider: %q\n\nSupported providers: %s",
			provider, strings.Join(credentials.SupportedProviders(), ", "))
	}
	return provider, nil
}

func (c *authCommander) runAuth(provider string) error {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return err
	}

	apiKey, err := c.readAPIKey(provider)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetKey(provider, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s credentials %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(provider),
		cliui.DimStyle.Render("(in "+mgr.GetTarget()+")"),
	)

	envVar := credentials.EnvVarForProvider(provider)
	if os.Getenv(envVar) != "" {
		fmt.Fprintf(c.out, "  %s %s is set and takes precedence over the stored key.\n",
			cliui.WarnStyle.Render("!"), envVar)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *authCommander) runList() error {
	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Credentials"))

	for _, p := range credentials.SupportedProviders() {
		_, source, err := mgr.Resolve(p)
		if err != nil {
			return err
		}

		envVar := credentials.EnvVarForProvider(p)
		switch source {
		case credentials.SourceEnv:
			fmt.Fprintf(c.out, "  %s  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("from environment"))
		case credentials.SourceFile:
			fmt.Fprintf(c.out, "  %s  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(p),
				cliui.DimStyle.Render("stored → "+envVar))
		default:
			fmt.Fprintf(c.out, "  %s  %s  %s\n", cliui.DimStyle.Render("●"), p,
				cliui.DimStyle.Render("not configured, use 'watsonx auth "+p+"'"))
		}
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveKey(provider); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed %s credentials.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(provider))

	return nil
}

// readAPIKey reads an API key from the command input. A terminal gets a
// hidden prompt; anything else has its first line read.
func (c *authCommander) readAPIKey(provider string) (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		envVar := credentials.EnvVarForProvider(provider)
		fmt.Fprintf(c.out, "Enter API key for %s (%s): ", provider, envVar)

		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return string(keyBytes), nil
	}

	scanner := bufio.NewScanner(c.in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
