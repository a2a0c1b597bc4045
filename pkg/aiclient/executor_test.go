package aiclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
)

// roundTripFunc serves responses without a network round trip.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// trackedBody records whether it was closed.
type trackedBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

var _ = Describe("Executor", func() {
	var (
		server  *httptest.Server
		headers chan http.Header
		paths   chan string
	)

	BeforeEach(func() {
		headers = make(chan http.Header, 1)
		paths = make(chan string, 1)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers <- r.Header.Clone()
			paths <- r.URL.Path
			_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"hi"}}]}`)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("strips the trailing slash from the server URL", func() {
		exec, err := aiclient.NewExecutor(server.URL+"/v1/chat/completions/", "k", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(exec.ServerURL()).To(Equal(server.URL + "/v1/chat/completions"))

		_, err = exec.Post(context.Background(), map[string]string{"model": "m"}, time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(<-paths).To(Equal("/v1/chat/completions"))
	})

	DescribeTable("normalizes the bearer token",
		func(token, want string) {
			exec, err := aiclient.NewExecutor(server.URL, token, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = exec.Post(context.Background(), map[string]string{}, time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect((<-headers).Get("Authorization")).To(Equal(want))
		},
		Entry("plain token", "sk-abc", "Bearer sk-abc"),
		Entry("already prefixed", "Bearer sk-abc", "Bearer sk-abc"),
		Entry("surrounding whitespace", "  Bearer sk-abc \n", "Bearer sk-abc"),
		Entry("empty token", "", ""),
	)

	It("returns the raw JSON body", func() {
		exec, err := aiclient.NewExecutor(server.URL, "k", nil)
		Expect(err).NotTo(HaveOccurred())

		body, err := exec.Post(context.Background(), map[string]string{}, time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(MatchJSON(`{"choices":[{"message":{"content":"hi"}}]}`))
	})

	It("reports unencodable payloads as client errors", func() {
		exec, err := aiclient.NewExecutor(server.URL, "k", nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = exec.Post(context.Background(), map[string]any{"bad": make(chan int)}, time.Second)
		Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindClient))
	})

	It("truncates non-JSON bodies without splitting characters", func() {
		transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(strings.Repeat("翻", 300))),
			}, nil
		})

		exec, err := aiclient.NewExecutor("http://upstream.test", "k", &http.Client{Transport: transport})
		Expect(err).NotTo(HaveOccurred())

		_, err = exec.Post(context.Background(), map[string]string{}, time.Second)
		Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindInvalidResponse))
		Expect(utf8.ValidString(err.Error())).To(BeTrue())
		Expect(err.Error()).To(HaveSuffix(strings.Repeat("翻", 200) + "..."))
	})

	It("reports a timeout when headers arrive after the deadline", func() {
		body := &trackedBody{Reader: strings.NewReader("data: [DONE]\n")}
		transport := roundTripFunc(func(*http.Request) (*http.Response, error) {
			time.Sleep(50 * time.Millisecond)
			return &http.Response{StatusCode: http.StatusOK, Body: body}, nil
		})

		exec, err := aiclient.NewExecutor("http://upstream.test", "k", &http.Client{Transport: transport})
		Expect(err).NotTo(HaveOccurred())

		rc, err := exec.Open(context.Background(), map[string]string{}, 10*time.Millisecond)
		Expect(rc).To(BeNil())
		Expect(aiclient.KindOf(err)).To(Equal(aiclient.KindNetwork))
		Expect(err.Error()).To(ContainSubstring("no response within 10ms"))
		Expect(body.closed.Load()).To(BeTrue())
	})
})
