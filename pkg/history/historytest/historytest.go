// Package historytest holds the behaviour every history.Driver must share.
// Driver suites call DescribeDriver from a Describe block.
package historytest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

// Interaction builds a finished interaction started at the given offset from
// a fixed base time.
func Interaction(id string, offset time.Duration) *history.Interaction {
	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	return &history.Interaction{
		ID:        id,
		Task:      "translate",
		Model:     "qwen3-coder",
		Input:     "你好",
		Output:    "Hello",
		StartedAt: base.Add(offset),
		Duration:  1500 * time.Millisecond,
	}
}

// DescribeDriver registers the shared driver tests. newDriver is called once
// per test; the driver is closed afterwards.
func DescribeDriver(newDriver func() history.Driver) {
	var (
		ctx    context.Context
		driver history.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("stores and retrieves an interaction", func() {
		in := Interaction("a", 0)
		in.Streaming = true
		Expect(driver.Put(ctx, in)).To(Succeed())

		got, err := driver.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Task).To(Equal("translate"))
		Expect(got.Input).To(Equal("你好"))
		Expect(got.Output).To(Equal("Hello"))
		Expect(got.Streaming).To(BeTrue())
		Expect(got.Duration).To(Equal(1500 * time.Millisecond))
		Expect(got.StartedAt).To(BeTemporally("~", in.StartedAt, time.Millisecond))
	})

	It("keeps failure details", func() {
		in := Interaction("failed", 0)
		in.Output = ""
		in.Error = "Rate limit exceeded. Please try again later."
		in.ErrorKind = "rate_limit"
		Expect(driver.Put(ctx, in)).To(Succeed())

		got, err := driver.Get(ctx, "failed")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Failed()).To(BeTrue())
		Expect(got.ErrorKind).To(Equal("rate_limit"))
	})

	It("replaces an interaction stored under the same ID", func() {
		in := Interaction("a", 0)
		Expect(driver.Put(ctx, in)).To(Succeed())

		in.Output = "Hi"
		Expect(driver.Put(ctx, in)).To(Succeed())

		got, err := driver.Get(ctx, "a")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Output).To(Equal("Hi"))

		all, err := driver.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
	})

	It("returns NotFoundError for a missing ID", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(history.IsNotFound(err)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("missing")))
	})

	It("rejects nil", func() {
		Expect(driver.Put(ctx, nil)).To(MatchError(history.ErrNilInteraction))
	})

	It("lists newest first and honours the limit", func() {
		Expect(driver.Put(ctx, Interaction("old", 0))).To(Succeed())
		Expect(driver.Put(ctx, Interaction("new", 2*time.Minute))).To(Succeed())
		Expect(driver.Put(ctx, Interaction("mid", time.Minute))).To(Succeed())

		all, err := driver.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(all)).To(Equal([]string{"new", "mid", "old"}))

		limited, err := driver.List(ctx, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(limited)).To(Equal([]string{"new", "mid"}))
	})

	It("lists nothing from an empty store", func() {
		all, err := driver.List(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(BeEmpty())
	})
}

func ids(interactions []*history.Interaction) []string {
	out := make([]string, 0, len(interactions))
	for _, i := range interactions {
		out = append(out, i.ID)
	}
	return out
}
