package mcp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/api/mcp"
	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

var _ = Describe("MCP Server", func() {
	var (
		upstream *httptest.Server
		status   int
		answer   string
		prompts  chan string
		svc      *assistant.Service
	)

	BeforeEach(func() {
		status = http.StatusOK
		answer = "Hello"
		prompts = make(chan string, 4)
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req llm.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			prompts <- req.LastUserContent()

			w.WriteHeader(status)
			body, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"content": answer}}},
			})
			_, _ = w.Write(body)
		}))

		client, err := aiclient.New(upstream.URL, "sk-test",
			aiclient.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
		)
		Expect(err).NotTo(HaveOccurred())
		svc = assistant.New(client, "qwen3-coder", "en")
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("NewServer", func() {
		It("returns an error when the service is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("assistant service is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Service: func() *assistant.Service { return svc }})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{
				Service: func() *assistant.Service { return svc },
				Logger:  logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Context("with a connected client", func() {
		var (
			session *sdk.ClientSession
			cancel  context.CancelFunc
			done    chan error
		)

		BeforeEach(func() {
			server, err := mcp.NewServer(mcp.Config{
				Service: func() *assistant.Service { return svc },
				Logger:  logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			serverTransport, clientTransport := sdk.NewInMemoryTransports()

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan error, 1)
			go func() {
				done <- server.MCPServer().Run(ctx, serverTransport)
			}()

			client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
			session, err = client.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = session.Close()
			cancel()
			Eventually(done).Should(Receive())
		})

		callText := func(tool, text string) *sdk.CallToolResult {
			result, err := session.CallTool(context.Background(), &sdk.CallToolParams{
				Name:      tool,
				Arguments: map[string]any{"text": text},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Content).NotTo(BeEmpty())
			return result
		}

		textOf := func(result *sdk.CallToolResult) string {
			content, ok := result.Content[0].(*sdk.TextContent)
			Expect(ok).To(BeTrue())
			return content.Text
		}

		It("lists the assistant tools", func() {
			result, err := session.ListTools(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(result.Tools))
			for _, t := range result.Tools {
				names = append(names, t.Name)
			}
			sort.Strings(names)
			Expect(names).To(Equal([]string{"ask", "polish", "translate"}))
		})

		It("translates", func() {
			result := callText("translate", "你好")
			Expect(result.IsError).To(BeFalse())
			Expect(textOf(result)).To(Equal("Hello"))
			Expect(<-prompts).To(Equal("待翻译文本: 你好"))
		})

		It("polishes", func() {
			result := callText("polish", "this are")
			Expect(result.IsError).To(BeFalse())
			Expect(<-prompts).To(Equal("待润色文本: this are"))
		})

		It("refines answers", func() {
			answer = "  42  "
			result := callText("ask", "meaning of life")
			Expect(textOf(result)).To(Equal("42"))
		})

		It("reports blank input as a tool error", func() {
			result := callText("polish", "  ")
			Expect(result.IsError).To(BeTrue())
			Expect(textOf(result)).To(ContainSubstring("text is required"))
			Consistently(prompts, 50*time.Millisecond).ShouldNot(Receive())
		})

		It("reports upstream failures as tool errors", func() {
			status = http.StatusUnauthorized
			answer = "ignored"

			result := callText("ask", "why")
			Expect(result.IsError).To(BeTrue())
			Expect(textOf(result)).To(ContainSubstring("ask failed"))
			Expect(textOf(result)).To(ContainSubstring("authentication failed"))
		})
	})
})

