package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/fortuned/pkg/models"
)

func TestPromptBuildIncludesPoemAndQuestion(t *testing.T) {
	b := newPromptBuilder()
	poem := []*models.PoemChunk{{Title: "Poem 7", Body: "full poem body", FortuneLevel: "upper"}}
	extra := []*models.PoemChunk{{Title: "Commentary", Body: "historical context"}}

	prompt := b.Build(poem, extra, "will it rain tomorrow", "en")

	assert.Contains(t, prompt, "full poem body")
	assert.Contains(t, prompt, "upper")
	assert.Contains(t, prompt, "historical context")
	assert.Contains(t, prompt, "will it rain tomorrow")
}

func TestPromptBuildOmitsContextSectionWhenNoExtraChunks(t *testing.T) {
	b := newPromptBuilder()
	poem := []*models.PoemChunk{{Title: "Poem 7", Body: "full poem body"}}

	prompt := b.Build(poem, nil, "question", "en")

	assert.NotContains(t, prompt, "Additional context")
}

func TestPromptTightenAppendsStricterInstruction(t *testing.T) {
	b := newPromptBuilder()
	base := "base prompt"
	tightened := b.Tighten(base, "en")

	assert.Contains(t, tightened, base)
	assert.Contains(t, tightened, "seven sections")
}

func TestPromptLocalizesByLanguage(t *testing.T) {
	b := newPromptBuilder()
	poem := []*models.PoemChunk{{Title: "t", Body: "b"}}

	zh := b.Build(poem, nil, "q", "zh")
	en := b.Build(poem, nil, "q", "en")

	assert.NotEqual(t, zh, en)
}
