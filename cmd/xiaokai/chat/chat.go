// Package chatcmder provides the chat command for an interactive,
// streaming conversation with the assistant.
package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/setup"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/dotdir"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("xiaokai> ")
)

const (
	defaultKeep = 20

	cmdExit  = "/exit"
	cmdReset = "/reset"
)

type chatCommander struct {
	fresh    bool
	keep     int
	flagKeys []string

	configDir string
	ddm       *dotdir.Manager
	logger    *slog.Logger
	out       io.Writer
}

const chatLongDesc string = `Start an interactive chat with the assistant.

Replies stream as they arrive. The conversation is saved to session.json in
the .xiaokai/ directory after every turn and resumed by the next
"xiaokai chat"; use --new to start over. Only the last --keep messages are
sent with each request.

Type /reset to clear the conversation, /exit or Ctrl+D to quit.

Examples:
  xiaokai chat
  xiaokai chat --new --model deepseek-chat`

const chatShortDesc string = "Interactive streaming chat with the assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Discard the saved conversation")
	cmd.Flags().IntVar(&cmder.keep, "keep", defaultKeep, "Messages of history sent with each request")
	cmder.flagKeys = setup.AddFlags(cmd, setup.ClientFlags, setup.RecordingFlags)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	cfg, err := setup.LoadConfig(cmd, c.flagKeys)
	if err != nil {
		return err
	}

	c.configDir = setup.ConfigDir(cmd)
	c.ddm = dotdir.NewManager()
	c.logger = setup.NewLogger(cmd.ErrOrStderr(), setup.Debug(cmd))
	c.out = cmd.OutOrStdout()

	stack, err := setup.Open(cmd.Context(), cfg, c.configDir, "chat", c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			c.logger.Warn("closing history", "error", err)
		}
	}()

	session, err := c.loadSession(cfg.AI.Model)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(cfg.AI.Model),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case cmdExit:
			fmt.Fprintln(c.out)
			return nil
		case cmdReset:
			session = dotdir.NewSession(cfg.AI.Model)
			if err := c.ddm.ClearSession(c.configDir); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "  %s Conversation cleared\n\n", cliui.SuccessMark)
			continue
		}

		session.Append(llm.RoleUser, input)
		session.Trim(c.keep)

		reply, err := c.converse(cmd, stack.Service, session.Messages)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %v\n", cliui.FailMark, err)
			// Drop the failed turn so the user can retry it.
			session.Messages = session.Messages[:len(session.Messages)-1]
			continue
		}

		session.Append(llm.RoleAssistant, reply)
		if err := c.ddm.SaveSession(session, c.configDir); err != nil {
			c.logger.Warn("saving chat session", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loadSession(model string) (*dotdir.Session, error) {
	if c.fresh {
		if err := c.ddm.ClearSession(c.configDir); err != nil {
			return nil, err
		}
	}

	session, err := c.ddm.LoadSession(c.configDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(c.out)
	if session == nil {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
		return dotdir.NewSession(model), nil
	}

	fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(utils.Truncate(session.ID, 8)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(session.Messages))),
	)
	session.Model = model
	return session, nil
}

// converse streams one assistant turn to the output and returns its text.
func (c *chatCommander) converse(cmd *cobra.Command, svc *assistant.Service, turns []llm.Message) (string, error) {
	c.logger.Debug("sending chat turn", "messages", len(turns))

	stream, err := svc.Converse(cmd.Context(), turns)
	if err != nil {
		return "", err
	}

	fmt.Fprint(c.out, assistantPrompt)

	var reply strings.Builder
	for chunk, err := range stream.Chunks() {
		if err != nil {
			fmt.Fprintln(c.out)
			return "", err
		}
		fmt.Fprint(c.out, chunk)
		reply.WriteString(chunk)
	}
	fmt.Fprint(c.out, "\n\n")

	return reply.String(), nil
}
