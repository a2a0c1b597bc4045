// Package xiaokaicmder assembles the xiaokai command tree.
package xiaokaicmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/auth"
	chatcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/chat"
	configcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/config"
	historycmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/history"
	initcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/init"
	servecmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/serve"
	taskcmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/task"
	versioncmder "github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/version"
)

const xiaokaiLongDesc string = `xiaokai is a translation and writing assistant backed by any
OpenAI-compatible chat-completions endpoint.

Quick start:
  xiaokai auth                     Store the API key
  xiaokai config set ai.server https://api.example.com/v1/chat/completions
  xiaokai translate "你好世界"       Translate into the target language
  xiaokai chat                     Interactive streaming chat
  xiaokai serve                    Local HTTP API and MCP tools

Rate limits, server errors and network failures are retried with
exponential backoff.`

const xiaokaiShortDesc string = "xiaokai - AI translation and writing assistant"

func NewXiaokaiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "xiaokai",
		Short:        xiaokaiShortDesc,
		Long:         xiaokaiLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .xiaokai/ directory")

	cmd.AddGroup(
		&cobra.Group{ID: "assistant", Title: "Assistant Commands:"},
		&cobra.Group{ID: "manage", Title: "Management Commands:"},
	)

	for _, sub := range []*cobra.Command{
		taskcmder.NewTranslateCmd(),
		taskcmder.NewPolishCmd(),
		taskcmder.NewAskCmd(),
		taskcmder.NewSpeechCmd(),
		chatcmder.NewChatCmd(),
		servecmder.NewServeCmd(),
	} {
		sub.GroupID = "assistant"
		cmd.AddCommand(sub)
	}

	for _, sub := range []*cobra.Command{
		authcmder.NewAuthCmd(),
		configcmder.NewConfigCmd(),
		historycmder.NewHistoryCmd(),
		initcmder.NewInitCmd(),
	} {
		sub.GroupID = "manage"
		cmd.AddCommand(sub)
	}

	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
