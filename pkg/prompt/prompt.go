// Package prompt builds the chat payloads for each assistant task.
package prompt

import (
	"fmt"
	"slices"

	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

// Target languages.
const (
	LanguageChinese    = "zh"
	LanguageEnglish    = "en"
	LanguageVietnamese = "vi"
)

var languageLabels = map[string]string{
	LanguageChinese:    "中文",
	LanguageEnglish:    "英文",
	LanguageVietnamese: "越南语",
}

// SupportedLanguages returns the target languages translation accepts.
func SupportedLanguages() []string {
	return []string{LanguageChinese, LanguageEnglish, LanguageVietnamese}
}

// ValidLanguage reports whether code is a supported target language.
func ValidLanguage(code string) bool {
	return slices.Contains(SupportedLanguages(), code)
}

// LanguageLabel returns the label used in the translation prompt. Unknown
// codes fall back to Chinese.
func LanguageLabel(code string) string {
	if label, ok := languageLabels[code]; ok {
		return label
	}
	return languageLabels[LanguageChinese]
}

// Builder composes chat payloads for a model and target language.
type Builder struct {
	Model          string
	TargetLanguage string
}

// Chat builds a system + user payload.
func (b Builder) Chat(system, user string) llm.ChatRequest {
	return llm.ChatRequest{
		Model: b.Model,
		Messages: []llm.Message{
			llm.NewMessage(llm.RoleSystem, system),
			llm.NewMessage(llm.RoleUser, user),
		},
	}
}

// Conversation builds a payload from a system prompt and prior turns.
func (b Builder) Conversation(system string, turns []llm.Message) llm.ChatRequest {
	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.NewMessage(llm.RoleSystem, system))
	messages = append(messages, turns...)
	return llm.ChatRequest{
		Model:    b.Model,
		Messages: messages,
	}
}

// Translation builds a request translating text into the target language.
func (b Builder) Translation(text string) llm.ChatRequest {
	return b.Chat(translationSystem(LanguageLabel(b.TargetLanguage)), withPrefix(translationPrefix, text))
}

// Polish builds a request improving grammar and clarity of text.
func (b Builder) Polish(text string) llm.ChatRequest {
	return b.Chat(polishSystem, withPrefix(polishPrefix, text))
}

// QA builds a general question-answering request.
func (b Builder) QA(question string) llm.ChatRequest {
	return b.Chat(qaSystem, withPrefix(qaPrefix, question))
}

// SpeechTranslation builds a request for text recognized from audio. It is
// worded exactly like Translation.
func (b Builder) SpeechTranslation(recognized string) llm.ChatRequest {
	return b.Translation(recognized)
}

// ChatSystem returns the system prompt of the interactive chat.
func (b Builder) ChatSystem() string {
	return qaSystem
}

// withPrefix labels user content. Empty input stays empty.
func withPrefix(prefix, text string) string {
	if text == "" {
		return ""
	}
	return prefix + text
}

func translationSystem(label string) string {
	return translationSystemBase + fmt.Sprintf("请将用户输入内容翻译为%s，只输出译文，不要额外解释。", label)
}
