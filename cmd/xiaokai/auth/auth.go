// Package authcmder provides the auth command for storing the chat
// endpoint API key.
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

	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
)

const apiKeyKey = "ai.api_key"

const authLongDesc string = `Store the API key sent as a bearer token to the chat endpoint.

The key is written to ai.api_key in config.toml in the .xiaokai/ directory.
When no key is stored, the AI_API_KEY environment variable is used.

Examples:
  xiaokai auth                 Prompt for the API key (hidden input)
  echo $KEY | xiaokai auth     Pipe the API key from stdin
  xiaokai auth --status        Show which key is in effect
  xiaokai auth --remove        Remove the stored key`

const authShortDesc string = "Store the chat endpoint API key"

type authCommander struct {
	status bool
	remove bool

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			switch {
			case cmder.status:
				return cmder.runStatus(configDir)
			case cmder.remove:
				return cmder.runRemove(configDir)
			default:
				return cmder.runAuth(configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&cmder.status, "status", false, "Show the API key in effect")
	cmd.Flags().BoolVar(&cmder.remove, "remove", false, "Remove the stored API key")
	cmd.MarkFlagsMutuallyExclusive("status", "remove")

	return cmd
}

func (c *authCommander) runAuth(configDir string) error {
	apiKey, err := c.readAPIKey()
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(apiKeyKey, apiKey); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored API key %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(config.MaskKey(apiKey)),
		cliui.DimStyle.Render("(in "+cfger.GetTarget()+")"),
	)

	return nil
}

func (c *authCommander) runStatus(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	switch {
	case cfg.AI.APIKey != "":
		fmt.Fprintf(c.out, "\n  %s %s %s\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(config.MaskKey(cfg.AI.APIKey)),
			cliui.DimStyle.Render("(from "+apiKeyKey+")"),
		)
	case cfg.APIToken() != "":
		fmt.Fprintf(c.out, "\n  %s %s %s\n\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(config.MaskKey(cfg.APIToken())),
			cliui.DimStyle.Render("(from "+config.APIKeyEnv+")"),
		)
	default:
		fmt.Fprintf(c.out, "\n  %s No API key configured.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'xiaokai auth' to store one or set %s.\n\n", config.APIKeyEnv)
	}

	return nil
}

func (c *authCommander) runRemove(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(apiKeyKey, ""); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Removed the stored API key.\n\n", cliui.SuccessMark)
	return nil
}

// readAPIKey reads the key from the command input. A terminal gets a hidden
// prompt; anything else is read up to the first newline.
func (c *authCommander) readAPIKey() (string, error) {
	if f, ok := c.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(c.out, "Enter API key (%s): ", apiKeyKey)

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
