// Package historycmder provides the history command for reviewing recorded
// assistant interactions.
package historycmder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/setup"
	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/utils"
)

// previewWidth is measured in terminal cells; CJK runes take two.
const previewWidth = 40

type historyCommander struct {
	asJSON   bool
	flagKeys []string
}

const historyLongDesc string = `List recorded assistant interactions, newest first, or show one by ID.

Interactions are recorded by every command and by "xiaokai serve" into the
configured history driver. The memory driver keeps nothing between runs;
use sqlite or postgres to review past sessions.

Examples:
  xiaokai history
  xiaokai history -n 5 --history sqlite
  xiaokai history 3f0c2a9e-... --json`

const historyShortDesc string = "List recorded interactions"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print interactions as JSON")
	cmder.flagKeys = setup.AddFlags(cmd,
		[]string{config.FlagHistory, config.FlagSQLite, config.FlagPostgres, config.FlagLimit},
	)

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command, args []string) error {
	cfg, err := setup.LoadConfig(cmd, c.flagKeys)
	if err != nil {
		return err
	}

	driver, err := setup.OpenHistory(cmd.Context(), cfg, setup.ConfigDir(cmd))
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer driver.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		interaction, err := driver.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if c.asJSON {
			return writeJSON(out, interaction)
		}
		printDetail(out, interaction)
		return nil
	}

	interactions, err := driver.List(cmd.Context(), cfg.History.Limit)
	if err != nil {
		return err
	}

	if c.asJSON {
		if interactions == nil {
			interactions = []*history.Interaction{}
		}
		return writeJSON(out, interactions)
	}

	if len(interactions) == 0 {
		fmt.Fprintf(out, "\n  %s No interactions recorded %s\n\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render("(history.driver = "+cfg.History.Driver+")"),
		)
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Recent interactions"))
	for _, i := range interactions {
		printRow(out, i)
	}
	fmt.Fprintln(out)

	return nil
}

func printRow(w io.Writer, i *history.Interaction) {
	result := i.Output
	if i.Failed() {
		result = i.Error
	}

	fmt.Fprintf(w, "  %s %s %s %-16s %s %s %s\n",
		cliui.Mark(failure(i)),
		cliui.IDStyle.Render(i.ID[:min(len(i.ID), 8)]),
		cliui.DimStyle.Render(i.StartedAt.Local().Format("01-02 15:04:05")),
		cliui.NameStyle.Render(i.Task),
		preview(i.Input),
		cliui.DimStyle.Render("→"),
		preview(result),
	)
}

func printDetail(w io.Writer, i *history.Interaction) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("id", i.ID))
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("task", i.Task))
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("model", i.Model))
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("started", i.StartedAt.Local().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("duration", cliui.FormatDuration(i.Duration)))
	fmt.Fprintf(w, "  %s\n", cliui.KeyValue("streaming", fmt.Sprint(i.Streaming)))
	if i.Failed() {
		fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, cliui.WarnStyle.Render(i.ErrorKind+": "+i.Error))
	}
	fmt.Fprintf(w, "\n  %s\n%s\n", cliui.HeaderStyle.Render("Input"), i.Input)
	fmt.Fprintf(w, "\n  %s\n%s\n\n", cliui.HeaderStyle.Render("Output"), i.Output)
}

func preview(s string) string {
	return ansi.Truncate(utils.OneLine(s), previewWidth, "…")
}

func failure(i *history.Interaction) error {
	if i.Failed() {
		return errors.New(i.Error)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
