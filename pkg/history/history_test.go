package history_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

var _ = Describe("NewInteraction", func() {
	It("assigns a unique ID and a UTC start time", func() {
		a := history.NewInteraction("polish", "m", "text")
		b := history.NewInteraction("polish", "m", "text")

		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.StartedAt.Location()).To(Equal(time.UTC))
		Expect(a.StartedAt).To(BeTemporally("~", time.Now(), time.Second))
		Expect(a.Failed()).To(BeFalse())
	})
})

var _ = Describe("NotFoundError", func() {
	It("is detected through wrapping", func() {
		err := fmt.Errorf("lookup: %w", history.NotFoundError{ID: "x"})
		Expect(history.IsNotFound(err)).To(BeTrue())
		Expect(err.Error()).To(Equal("lookup: interaction not found: x"))
	})

	It("does not match other errors", func() {
		Expect(history.IsNotFound(history.ErrNilInteraction)).To(BeFalse())
		Expect(history.NotFoundError{}.Error()).To(Equal("interaction not found"))
	})
})
