package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
	"github.com/Josn-deng/lux-xiaokai/pkg/prompt"
)

var _ = Describe("Builder", func() {
	var b prompt.Builder

	BeforeEach(func() {
		b = prompt.Builder{Model: "qwen3-coder", TargetLanguage: prompt.LanguageEnglish}
	})

	Describe("Chat", func() {
		It("builds a system then user payload for the model", func() {
			req := b.Chat("sys", "user")
			Expect(req.Model).To(Equal("qwen3-coder"))
			Expect(req.Stream).To(BeFalse())
			Expect(req.Messages).To(Equal([]llm.Message{
				{Role: llm.RoleSystem, Content: "sys"},
				{Role: llm.RoleUser, Content: "user"},
			}))
		})
	})

	Describe("Translation", func() {
		DescribeTable("names the target language in the system prompt",
			func(code, label string) {
				b.TargetLanguage = code
				Expect(b.Translation("hi").Messages[0].Content).To(ContainSubstring("翻译为" + label))
			},
			Entry("Chinese", "zh", "中文"),
			Entry("English", "en", "英文"),
			Entry("Vietnamese", "vi", "越南语"),
			Entry("unknown falls back to Chinese", "fr", "中文"),
			Entry("empty falls back to Chinese", "", "中文"),
		)

		It("prefixes the user content", func() {
			Expect(b.Translation("hello").Messages[1].Content).To(Equal("待翻译文本: hello"))
		})

		It("leaves empty input empty", func() {
			Expect(b.Translation("").Messages[1].Content).To(BeEmpty())
		})
	})

	Describe("Polish", func() {
		It("prefixes the user content", func() {
			req := b.Polish("some text")
			Expect(req.Messages[0].Content).To(ContainSubstring("润色"))
			Expect(req.Messages[1].Content).To(Equal("待润色文本: some text"))
			Expect(b.Polish("").Messages[1].Content).To(BeEmpty())
		})
	})

	Describe("QA", func() {
		It("prefixes the question", func() {
			Expect(b.QA("why?").Messages[1].Content).To(Equal("问题: why?"))
			Expect(b.QA("").Messages[1].Content).To(BeEmpty())
		})
	})

	Describe("SpeechTranslation", func() {
		It("matches the text translation payload", func() {
			Expect(b.SpeechTranslation("recognized")).To(Equal(b.Translation("recognized")))
		})
	})

	Describe("Conversation", func() {
		It("puts the system prompt before the prior turns", func() {
			turns := []llm.Message{
				llm.NewMessage(llm.RoleUser, "q1"),
				llm.NewMessage(llm.RoleAssistant, "a1"),
				llm.NewMessage(llm.RoleUser, "q2"),
			}
			req := b.Conversation(b.ChatSystem(), turns)
			Expect(req.Messages).To(HaveLen(4))
			Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
			Expect(req.LastUserContent()).To(Equal("q2"))
		})
	})
})

var _ = Describe("Languages", func() {
	It("supports zh, en and vi", func() {
		Expect(prompt.SupportedLanguages()).To(Equal([]string{"zh", "en", "vi"}))
		Expect(prompt.ValidLanguage("vi")).To(BeTrue())
		Expect(prompt.ValidLanguage("fr")).To(BeFalse())
	})
})
