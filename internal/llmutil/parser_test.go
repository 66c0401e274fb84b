package llmutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot-ai/pagepilot/internal/llmutil"
)

type planResponse struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"type":"click"}`,
			want:  `{"type":"click"}`,
		},
		{
			name:  "fenced json object",
			input: "```json\n{\"type\":\"click\"}\n```",
			want:  `{"type":"click"}`,
		},
		{
			name:  "fenced without language tag",
			input: "```\n{\"type\":\"scroll\"}\n```",
			want:  `{"type":"scroll"}`,
		},
		{
			name:  "fenced array",
			input: "```json\n[{\"type\":\"click\"}]\n```",
			want:  `[{"type":"click"}]`,
		},
		{
			name:  "object inside prose",
			input: `Sure! Here is the plan: {"type":"navigate","value":"https://example.com"} Hope that helps.`,
			want:  `{"type":"navigate","value":"https://example.com"}`,
		},
		{
			name:  "array inside prose",
			input: `The steps are [1, 2, 3] as requested.`,
			want:  `[1, 2, 3]`,
		},
		{
			name:  "no structure at all",
			input: "I cannot produce a plan.",
			want:  "I cannot produce a plan.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llmutil.ExtractJSON(tt.input))
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	t.Run("parses fenced response", func(t *testing.T) {
		got, err := llmutil.ParseJSONResponse[planResponse]("```json\n{\"type\":\"navigate\",\"value\":\"https://example.com\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, "navigate", got.Type)
		assert.Equal(t, "https://example.com", got.Value)
	})

	t.Run("fails on garbage with truncated context", func(t *testing.T) {
		_, err := llmutil.ParseJSONResponse[planResponse]("not json at all")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal")
	})
}
