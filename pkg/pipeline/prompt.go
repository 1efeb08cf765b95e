package pipeline

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/fortuned/pkg/models"
)

// promptBuilder composes the interpretation prompt from the authoritative
// poem chunks and the contextual chunks the RAG stage retrieved.
// Stateless — all state comes from Build's parameters.
//
// Grounded on agent/prompt.PromptBuilder's composition shape (system
// preamble + structured user content, concatenated), and on the original
// system's _create_llm_prompt for the actual role framing and the
// seven-section instruction this domain asks for instead.
type promptBuilder struct{}

func newPromptBuilder() *promptBuilder {
	return &promptBuilder{}
}

var systemPreamble = map[string]string{
	"zh": "你是一位慈祥智慧的解籤師，擅长为人指点迷津。请以温和、鼓励的语调回答用户的问题。",
	"en": "You are a wise, compassionate fortune interpreter, skilled at guiding people through uncertainty. Answer the user's question in a gentle, encouraging tone.",
	"ja": "あなたは慈悲深く賢明なおみくじの解釈者です。穏やかで励みになる口調でユーザーの質問に答えてください。",
}

var sectionInstruction = map[string]string{
	"zh": "请将解读组织为以下七个部分，逐条给出：逐句解读、整体运势走向、有利因素、挑战与注意事项、建议行动、补充说明、结语。",
	"en": "Organize the interpretation into exactly these seven sections, in order: a line-by-line interpretation of the poem, the overall development of fortune, positive factors, challenges, suggested actions, supplementary notes, and a conclusion.",
	"ja": "解釈は次の七つのセクションの順序で構成してください：逐語解釈、全体的な運勢の展開、好材料、課題、推奨される行動、補足事項、結論。",
}

func pick(table map[string]string, language string) string {
	if s, ok := table[language]; ok {
		return s
	}
	return table["en"]
}

// Build assembles the full user-facing prompt: role preamble, the
// authoritative poem text and fortune level, any additional contextual
// chunks the RAG stage surfaced, the user's question verbatim, and the
// seven-section structure instruction.
func (b *promptBuilder) Build(poem []*models.PoemChunk, extra []*models.PoemChunk, question, language string) string {
	var sb strings.Builder

	sb.WriteString(pick(systemPreamble, language))
	sb.WriteString("\n\n")

	for _, chunk := range poem {
		fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", poemLabel(language), chunk.Title, chunk.Body)
		if chunk.FortuneLevel != "" {
			fmt.Fprintf(&sb, "%s: %s\n\n", fortuneLevelLabel(language), chunk.FortuneLevel)
		}
	}

	if len(extra) > 0 {
		sb.WriteString(contextLabel(language))
		sb.WriteString("\n")
		for i, chunk := range extra {
			fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, chunk.Title, chunk.Body)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(pick(sectionInstruction, language))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s: %s\n", questionLabel(language), question)

	return sb.String()
}

// Tighten appends a stricter instruction to a prior prompt for the single
// retry attempt after a validation failure, asking for fuller sections
// without changing the substance of the request.
func (b *promptBuilder) Tighten(prompt string, language string) string {
	return prompt + "\n\n" + pick(tightenInstruction, language)
}

var tightenInstruction = map[string]string{
	"zh": "上一次的回答过于简短或格式不完整。请确保七个部分全部给出，且每部分内容充实、具体。",
	"en": "The previous reply was too short or missing sections. Ensure all seven sections are present and each is substantive and specific.",
	"ja": "前回の回答は短すぎるか、セクションが不足していました。七つのセクションすべてを含め、それぞれ具体的な内容にしてください。",
}

func poemLabel(language string) string {
	return pick(map[string]string{"zh": "籤詩", "en": "Poem", "ja": "おみくじ"}, language)
}

func fortuneLevelLabel(language string) string {
	return pick(map[string]string{"zh": "籤運", "en": "Fortune level", "ja": "運勢"}, language)
}

func contextLabel(language string) string {
	return pick(map[string]string{"zh": "相关资料：", "en": "Additional context:", "ja": "関連情報："}, language)
}

func questionLabel(language string) string {
	return pick(map[string]string{"zh": "用户问题", "en": "User question", "ja": "ユーザーの質問"}, language)
}
