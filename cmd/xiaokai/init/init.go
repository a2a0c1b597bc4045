// Package initcmder provides the init command for initializing a local
// .xiaokai directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
)

const dirName = ".xiaokai"

const initLongDesc string = `Initialize a new .xiaokai/ directory in the current working directory.

Creates a local .xiaokai/ directory that takes precedence over ~/.xiaokai/
for configuration, the sqlite history database and the chat session.

With --preset, a config.toml pointing at a well-known endpoint is written
as well. An existing config.toml is never overwritten.

Presets: ` + "local, openai, ollama" + `

Examples:
  xiaokai init
  xiaokai init --preset ollama`

const initShortDesc string = "Initialize a local .xiaokai/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Write a config.toml for a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	var preset *config.Config
	if c.preset != "" {
		var err error
		preset, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating .xiaokai directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .xiaokai directory: %s\n", dir)
	}

	if preset == nil {
		return nil
	}

	return writePreset(w, dir, c.preset, preset)
}

func writePreset(w io.Writer, dir, name string, cfg *config.Config) error {
	path := filepath.Join(dir, config.File)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  %s %s exists, preset not applied\n", cliui.WarnStyle.Render("!"), path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(name),
		cliui.DimStyle.Render("("+cfg.AI.Server+")"),
	)
	return nil
}
