package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

func TestBuild(t *testing.T) {
	units := []model.ContextUnit{
		{SectionName: "Integration Guides", SourceURL: "https://x/proxies/integration-guides", Content: "<Integration Guides>\nOxylabs proxies work with many tools."},
		{SectionName: "B", SourceURL: "https://x/a/b", Content: "<B>\nProxies are great."},
	}

	got := Build("Which tools are supported?", units)

	want := "### Integration Guides <https://x/proxies/integration-guides>\n" +
		"Oxylabs proxies work with many tools.\n\n" +
		"### B <https://x/a/b>\n" +
		"Proxies are great.\n\n" +
		"### User Question\n" +
		"Which tools are supported?\n"
	assert.Equal(t, want, got)
}

func TestBuild_EmptyContext(t *testing.T) {
	assert.Equal(t, "### User Question\nProxy China\n", Build("Proxy China", nil))
}

func TestBuild_EndsWithQuestion(t *testing.T) {
	questions := []string{"", "plain", "multi\nline", "<b>tagged</b>", "### User Question"}

	for _, q := range questions {
		out := Build(q, []model.ContextUnit{{SectionName: "S", SourceURL: "u", Content: "c"}})
		require.True(t, strings.HasSuffix(out, QuestionHeader+"\n"+q+"\n"), "question %q", q)
	}
}

func TestBuild_StripsOnlyTagLines(t *testing.T) {
	unit := model.ContextUnit{
		SectionName: "Html",
		SourceURL:   "https://x/a/html",
		Content:     "<Html>\nUse <code>curl</code> inline.\n<br>  \nnext line",
	}

	got := Build("q", []model.ContextUnit{unit})
	assert.Contains(t, got, "Use <code>curl</code> inline.\nnext line\n\n")
	assert.NotContains(t, got, "<Html>")
}

func TestSystemMessage(t *testing.T) {
	assert.Contains(t, SystemMessage, RefusalAnswer)
	assert.Contains(t, SystemMessage, QuestionHeader)
}

func TestSourceURLs(t *testing.T) {
	units := []model.ContextUnit{
		{SourceURL: "https://x/a"},
		{SourceURL: "https://x/b"},
		{SourceURL: "https://x/a"},
	}
	assert.Equal(t, []string{"https://x/a", "https://x/b"}, SourceURLs(units))
	assert.Nil(t, SourceURLs(nil))
}
