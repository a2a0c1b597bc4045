package aiclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

// sleepRecorder records backoff delays without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testRequest() llm.ChatRequest {
	return llm.ChatRequest{
		Model: "qwen3-coder",
		Messages: []llm.Message{
			llm.NewMessage(llm.RoleSystem, "You are a translator."),
			llm.NewMessage(llm.RoleUser, "Hello"),
		},
	}
}

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		attempts atomic.Int32
		recorder *sleepRecorder
	)

	BeforeEach(func() {
		attempts.Store(0)
		recorder = &sleepRecorder{}
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newClient := func(opts ...aiclient.Option) *aiclient.Client {
		opts = append([]aiclient.Option{aiclient.WithSleepFunc(recorder.sleep)}, opts...)
		client, err := aiclient.New(server.URL+"/", "Bearer sk-test", opts...)
		Expect(err).NotTo(HaveOccurred())
		return client
	}

	Describe("New", func() {
		It("applies defaults", func() {
			client := newClient()
			Expect(client.MaxRetries()).To(Equal(3))
			Expect(client.Timeout()).To(Equal(30 * time.Second))
		})

		It("rejects malformed server URLs", func() {
			_, err := aiclient.New("", "k")
			Expect(err).To(HaveOccurred())

			_, err = aiclient.New("ftp://example.com", "k")
			Expect(err).To(HaveOccurred())

			_, err = aiclient.New("http://", "k")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Chat", func() {
		It("returns the first choice content", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"Bonjour"}}]}`)
			}

			text, err := newClient().Chat(context.Background(), testRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Bonjour"))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("sends the bearer token once and the JSON payload", func() {
			type captured struct {
				auth        string
				contentType string
				body        map[string]any
			}
			requests := make(chan captured, 1)
			handler = func(w http.ResponseWriter, r *http.Request) {
				c := captured{
					auth:        r.Header.Get("Authorization"),
					contentType: r.Header.Get("Content-Type"),
				}
				_ = json.NewDecoder(r.Body).Decode(&c.body)
				requests <- c
				_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
			}

			_, err := newClient().Chat(context.Background(), testRequest())
			Expect(err).NotTo(HaveOccurred())

			var got captured
			Eventually(requests).Should(Receive(&got))
			Expect(got.auth).To(Equal("Bearer sk-test"))
			Expect(got.contentType).To(Equal("application/json"))
			Expect(got.body).To(HaveKeyWithValue("model", "qwen3-coder"))
			Expect(got.body).NotTo(HaveKey("stream"))
			Expect(got.body["messages"]).To(HaveLen(2))
		})

		It("logs one warning per retry with the attempt and delay", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}

			var buf bytes.Buffer
			log := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))

			_, err := newClient(aiclient.WithLogger(log)).Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindServer))

			var records []map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var record map[string]any
				Expect(json.Unmarshal([]byte(line), &record)).To(Succeed())
				records = append(records, record)
			}

			Expect(records).To(HaveLen(3))
			for i, record := range records {
				Expect(record).To(HaveKeyWithValue("level", "WARN"))
				Expect(record).To(HaveKeyWithValue("msg", "retrying chat request"))
				Expect(record).To(HaveKeyWithValue("attempt", float64(i+1)))
				Expect(record).To(HaveKeyWithValue("kind", string(aiclient.KindServer)))
				// Durations are encoded as nanoseconds.
				Expect(record).To(HaveKeyWithValue("delay", float64(time.Second<<i)))
			}
		})

		It("fails on an empty choices array without retrying", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[]}`)
			}

			_, err := newClient().Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindInvalidResponse))
			Expect(attempts.Load()).To(Equal(int32(1)))
			Expect(recorder.recorded()).To(BeEmpty())
		})

		It("fails on empty content without retrying", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[{"message":{"content":""}}]}`)
			}

			_, err := newClient().Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindInvalidResponse))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("fails on a non-JSON success body without retrying", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `<html>proxy login</html>`)
			}

			_, err := newClient().Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindInvalidResponse))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		DescribeTable("retries transient statuses with doubling backoff",
			func(status int, body string, kind aiclient.Kind) {
				handler = func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(status)
					_, _ = io.WriteString(w, body)
				}

				_, err := newClient().Chat(context.Background(), testRequest())

				var aerr *aiclient.Error
				Expect(errors.As(err, &aerr)).To(BeTrue())
				Expect(aerr.Kind).To(Equal(kind))
				Expect(aerr.StatusCode).To(Equal(status))
				Expect(attempts.Load()).To(Equal(int32(4)))
				Expect(recorder.recorded()).To(Equal([]time.Duration{
					1 * time.Second, 2 * time.Second, 4 * time.Second,
				}))
			},
			Entry("500", 500, `{"error":{"message":"boom"}}`, aiclient.KindServer),
			Entry("503", 503, `unavailable`, aiclient.KindServer),
			Entry("429", 429, `{"error":{"message":"slow down"}}`, aiclient.KindRateLimit),
		)

		It("retries attempt timeouts as network errors", func() {
			handler = func(_ http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}

			_, err := newClient(aiclient.WithTimeout(20*time.Millisecond)).Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindNetwork))
			Expect(attempts.Load()).To(Equal(int32(4)))
			Expect(recorder.recorded()).To(Equal([]time.Duration{
				1 * time.Second, 2 * time.Second, 4 * time.Second,
			}))
		})

		It("retries refused connections as network errors", func() {
			client := newClient()
			server.Close()

			_, err := client.Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindNetwork))
			Expect(recorder.recorded()).To(HaveLen(3))
		})

		DescribeTable("does not retry terminal failures",
			func(status int, body string, kind aiclient.Kind) {
				handler = func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(status)
					_, _ = io.WriteString(w, body)
				}

				_, err := newClient().Chat(context.Background(), testRequest())
				Expect(aiclient.KindOf(err)).To(Equal(kind))
				Expect(attempts.Load()).To(Equal(int32(1)))
				Expect(recorder.recorded()).To(BeEmpty())
			},
			Entry("401", 401, `{"error":{"message":"no"}}`, aiclient.KindAuthentication),
			Entry("403", 403, `forbidden`, aiclient.KindAuthentication),
			Entry("404", 404, `{"error":{"message":"nothing"}}`, aiclient.KindModelNotFound),
			Entry("400", 400, `{"error":{"message":"bad"}}`, aiclient.KindClient),
		)

		It("recovers when a retry succeeds", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				if attempts.Load() < 3 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"third time"}}]}`)
			}

			text, err := newClient().Chat(context.Background(), testRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("third time"))
			Expect(recorder.recorded()).To(Equal([]time.Duration{1 * time.Second, 2 * time.Second}))
		})

		It("returns the last transient error when kinds differ", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				if attempts.Load() < 4 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusTooManyRequests)
			}

			_, err := newClient().Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindRateLimit))
		})

		It("honors a custom retry count", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			_, err := newClient(aiclient.WithMaxRetries(0)).Chat(context.Background(), testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindServer))
			Expect(attempts.Load()).To(Equal(int32(1)))
			Expect(recorder.recorded()).To(BeEmpty())
		})

		It("surfaces cancellation during an in-flight request", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			handler = func(w http.ResponseWriter, _ *http.Request) {
				cancel()
				w.WriteHeader(http.StatusInternalServerError)
			}

			_, err := newClient().Chat(ctx, testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindCancelled))
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("unblocks a backoff sleep on cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			client, err := aiclient.New(server.URL, "k", aiclient.WithSleepFunc(func(ctx context.Context, d time.Duration) error {
				cancel()
				<-ctx.Done()
				return ctx.Err()
			}))
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Chat(ctx, testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindCancelled))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("does not send anything for an already cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := newClient().Chat(ctx, testRequest())
			Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindCancelled))
			Expect(attempts.Load()).To(BeZero())
		})
	})
})
