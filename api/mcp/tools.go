package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
)

var (
	translateToolName    = "translate"
	translateDescription = "Translate text into the configured target language (Chinese, English or Vietnamese). Returns only the translation."

	polishToolName    = "polish"
	polishDescription = "Polish text: fix grammar and improve clarity while keeping the original meaning and language."

	askToolName    = "ask"
	askDescription = "Ask the assistant a general question and get a concise answer."
)

// TextInput is the input of every assistant tool.
type TextInput struct {
	Text string `json:"text" jsonschema:"the text to process"`
}

// TextOutput is the structured output of every assistant tool.
type TextOutput struct {
	Result string `json:"result"`
}

func (s *Server) handleTranslate(ctx context.Context, _ *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, TextOutput, error) {
	return s.run(ctx, translateToolName, input, (*assistant.Service).Translate)
}

func (s *Server) handlePolish(ctx context.Context, _ *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, TextOutput, error) {
	return s.run(ctx, polishToolName, input, (*assistant.Service).Polish)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input TextInput) (*mcp.CallToolResult, TextOutput, error) {
	return s.run(ctx, askToolName, input, func(svc *assistant.Service, ctx context.Context, q string) (string, error) {
		answer, err := svc.Ask(ctx, q)
		if err != nil {
			return "", err
		}
		return assistant.RefineAnswer(answer), nil
	})
}

type taskFunc func(svc *assistant.Service, ctx context.Context, text string) (string, error)

func (s *Server) run(ctx context.Context, tool string, input TextInput, fn taskFunc) (*mcp.CallToolResult, TextOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.Text) == "" {
		return toolError("text is required"), TextOutput{}, nil
	}

	logger.Debug("MCP tool request",
		"tool", tool,
		"length", len(input.Text),
	)

	result, err := fn(s.config.Service(), ctx, input.Text)
	if err != nil {
		logger.Error("MCP tool failed",
			"tool", tool,
			"kind", aiclient.KindOf(err),
			"error", err,
		)
		return toolError(fmt.Sprintf("%s failed: %v", tool, err)), TextOutput{}, nil
	}

	output := TextOutput{Result: result}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: result},
		},
	}, output, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
