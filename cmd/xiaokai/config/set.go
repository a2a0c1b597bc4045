package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
)

const setLongDesc string = `Set a configuration value.

Validates the value and writes it to config.toml. Target languages are
zh, en and vi; history drivers are memory, sqlite and postgres; event
drivers are nop and kafka. events.brokers takes a comma-separated list.

Examples:
  xiaokai config set ai.server https://api.example.com/v1/chat/completions
  xiaokai config set history.driver sqlite
  xiaokai config set events.brokers kafka-1:9092,kafka-2:9092`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: completeKeys,
	}

	return cmd
}

func runSet(w io.Writer, key, value, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := openConfiger(w, configDir)
	if err != nil {
		return err
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Set %s\n\n", cliui.SuccessMark, cliui.KeyValue(key, display(key, value)))
	return nil
}
