// Package taskcmder provides the one-shot assistant commands: translate,
// polish, ask and speech.
package taskcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/setup"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
)

// frontend is stamped on the events of interactions started here.
const frontend = "cli"

type taskCommander struct {
	task     assistant.Task
	stream   bool
	markdown bool
	batch    bool
	flagKeys []string
}

type taskDesc struct {
	use   string
	short string
	long  string
	batch bool
}

var descs = map[assistant.Task]taskDesc{
	assistant.TaskTranslate: {
		use:   "translate [text]",
		short: "Translate text into the target language",
		long: `Translate text into the configured target language (zh, en or vi).

The text is taken from the arguments, or from stdin when none are given.
Blank input prints nothing and sends no request.

Examples:
  xiaokai translate "Good morning"
  xiaokai translate -t vi "早上好"
  cat notes.txt | xiaokai translate --batch`,
		batch: true,
	},
	assistant.TaskPolish: {
		use:   "polish [text]",
		short: "Polish text while keeping its language",
		long: `Polish text for grammar and fluency without translating it.

Examples:
  xiaokai polish "this sentence have a error"
  cat drafts.txt | xiaokai polish --batch`,
		batch: true,
	},
	assistant.TaskAsk: {
		use:   "ask [question]",
		short: "Ask the assistant a question",
		long: `Ask the assistant a question. An empty answer is shown as
"` + assistant.NoAnswer + `".

Examples:
  xiaokai ask "What is a goroutine?"
  xiaokai ask --markdown "Explain context cancellation"
  xiaokai ask --stream "Summarize the CAP theorem"`,
	},
	assistant.TaskSpeechTranslate: {
		use:   "speech [recognized text]",
		short: "Translate recognized speech into the target language",
		long: `Translate text produced by a speech recognizer into the target
language. Recognizer output is often unpunctuated; the request is the same
as translate.

Examples:
  xiaokai speech "今天天气怎么样"`,
	},
}

// NewTranslateCmd creates the translate command.
func NewTranslateCmd() *cobra.Command {
	return newTaskCmd(assistant.TaskTranslate)
}

// NewPolishCmd creates the polish command.
func NewPolishCmd() *cobra.Command {
	return newTaskCmd(assistant.TaskPolish)
}

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	return newTaskCmd(assistant.TaskAsk)
}

// NewSpeechCmd creates the speech command.
func NewSpeechCmd() *cobra.Command {
	return newTaskCmd(assistant.TaskSpeechTranslate)
}

func newTaskCmd(task assistant.Task) *cobra.Command {
	cmder := &taskCommander{task: task}
	desc := descs[task]

	cmd := &cobra.Command{
		Use:   desc.use,
		Short: desc.short,
		Long:  desc.long,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&cmder.stream, "stream", false, "Print the reply as it arrives")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the reply as markdown")
	cmd.MarkFlagsMutuallyExclusive("stream", "markdown")
	if desc.batch {
		cmd.Flags().BoolVar(&cmder.batch, "batch", false, "Treat each input line as a separate item")
		cmd.MarkFlagsMutuallyExclusive("batch", "stream")
	}

	cmder.flagKeys = setup.AddFlags(cmd, setup.ClientFlags, setup.RecordingFlags)

	return cmd
}

func (c *taskCommander) run(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := setup.LoadConfig(cmd, c.flagKeys)
	if err != nil {
		return err
	}

	log := setup.NewLogger(cmd.ErrOrStderr(), setup.Debug(cmd))
	ctx := cmd.Context()

	stack, err := setup.Open(ctx, cfg, setup.ConfigDir(cmd), frontend, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warn("closing history", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	svc := stack.Service

	switch {
	case c.batch:
		return c.runBatch(ctx, out, svc, text)
	case c.stream:
		return c.runStream(ctx, out, svc, text)
	}

	result, err := c.call(ctx, svc, text)
	if err != nil {
		return err
	}

	return c.print(out, result)
}

func (c *taskCommander) call(ctx context.Context, svc *assistant.Service, text string) (string, error) {
	switch c.task {
	case assistant.TaskTranslate:
		return svc.Translate(ctx, text)
	case assistant.TaskPolish:
		return svc.Polish(ctx, text)
	case assistant.TaskAsk:
		answer, err := svc.Ask(ctx, text)
		return assistant.RefineAnswer(answer), err
	case assistant.TaskSpeechTranslate:
		return svc.SpeechTranslate(ctx, text)
	default:
		return "", fmt.Errorf("unsupported task %q", c.task)
	}
}

func (c *taskCommander) runBatch(ctx context.Context, out io.Writer, svc *assistant.Service, text string) error {
	var items []string
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
		}
	}

	var (
		results []string
		err     error
	)
	if c.task == assistant.TaskPolish {
		results, err = svc.BatchPolish(ctx, items)
	} else {
		results, err = svc.BatchTranslate(ctx, items)
	}
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintln(out, r)
	}
	return nil
}

func (c *taskCommander) runStream(ctx context.Context, out io.Writer, svc *assistant.Service, text string) error {
	stream, err := svc.Stream(ctx, c.task, text)
	if err != nil {
		return err
	}

	wrote := false
	for chunk, err := range stream.Chunks() {
		if err != nil {
			if wrote {
				fmt.Fprintln(out)
			}
			return err
		}
		fmt.Fprint(out, chunk)
		wrote = true
	}

	if wrote {
		fmt.Fprintln(out)
	}
	return nil
}

func (c *taskCommander) print(out io.Writer, result string) error {
	if result == "" {
		return nil
	}

	if c.markdown {
		rendered, err := cliui.RenderMarkdown(result)
		if err == nil {
			_, err = fmt.Fprint(out, rendered)
			return err
		}
	}

	_, err := fmt.Fprintln(out, result)
	return err
}

// readInput joins the arguments, or reads stdin when there are none.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no input: pass text as arguments or on stdin")
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}
