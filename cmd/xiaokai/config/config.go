// Package configcmder provides the config command for managing the
// persistent xiaokai configuration stored in the .xiaokai/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
)

const configLongDesc string = `Manage persistent xiaokai configuration.

Configuration is stored as config.toml in the .xiaokai/ directory and
provides default values for command flags. CLI flags and XIAOKAI_*
environment variables take precedence over config file values. A running
"xiaokai serve" picks up changes to the file without a restart.

Keys use dotted notation matching the TOML section structure:
  ai.server, ai.model, ai.api_key, ai.timeout_seconds, ai.max_retries,
  assistant.target_language, assistant.auto_start,
  history.driver, history.sqlite_path, history.postgres_dsn, history.limit,
  api.listen,
  events.driver, events.brokers, events.topic

Examples:
  xiaokai config set ai.model deepseek-chat
  xiaokai config set assistant.target_language vi
  xiaokai config get ai.server
  xiaokai config list`

const configShortDesc string = "Manage persistent xiaokai configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func openConfiger(w io.Writer, configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)

	return cfger, nil
}

// display masks secrets before printing.
func display(key, value string) string {
	if key == "ai.api_key" {
		return config.MaskKey(value)
	}
	return value
}
