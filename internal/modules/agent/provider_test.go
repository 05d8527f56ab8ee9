package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderTypeNormalization(t *testing.T) {
	assert.True(t, isAnthropicProviderType("Anthropic"))
	assert.True(t, isAnthropicProviderType(" anthropic "))
	assert.False(t, isAnthropicProviderType("openai"))

	assert.True(t, isOpenAICompatibleProviderType("openai-compatible"))
	assert.True(t, isOpenAICompatibleProviderType("OpenAI_Compatible"))
	assert.False(t, isOpenAICompatibleProviderType("openai"))
}

func TestNormalizeOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "", normalizeOpenAIBaseURL(""))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/v1", normalizeOpenAIBaseURL("https://api.example.com/v1/"))
}

func TestNormalizeOpenAICompatibleEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.openai.com", normalizeOpenAICompatibleEndpoint(""))
	assert.Equal(t, "https://api.example.com", normalizeOpenAICompatibleEndpoint("https://api.example.com/v1"))
	assert.Equal(t, "https://api.example.com", normalizeOpenAICompatibleEndpoint("https://api.example.com/"))
}

func TestUnmarshalModelJSON(t *testing.T) {
	type out struct {
		Summary string `json:"summary"`
	}

	var a out
	require.NoError(t, UnmarshalModelJSON(`{"summary":"ok"}`, &a))
	assert.Equal(t, "ok", a.Summary)

	var b out
	require.NoError(t, UnmarshalModelJSON("```json\n{\"summary\":\"fenced\"}\n```", &b))
	assert.Equal(t, "fenced", b.Summary)

	var c out
	require.NoError(t, UnmarshalModelJSON(`前缀说明 {"summary":"embedded"} 后缀`, &c))
	assert.Equal(t, "embedded", c.Summary)

	var d out
	assert.Error(t, UnmarshalModelJSON("not json at all", &d))
}

func TestBuildReplyPromptSkipsEmptySections(t *testing.T) {
	_, prompt := buildReplyPrompt(replyInput{
		Profile:  "焦虑型家长",
		Messages: "孩子不写作业怎么办",
	})
	assert.Contains(t, prompt, "## 家长画像")
	assert.Contains(t, prompt, "## 家长的最新消息")
	assert.NotContains(t, prompt, "## 沟通策略")
	assert.NotContains(t, prompt, "## 近期事件摘要")
}
