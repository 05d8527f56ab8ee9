package responder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractScore(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reply  string
		score  float64
		scored bool
	}{
		{
			name:   "trailing marker",
			raw:    "你可以先倾听孩子的想法。<score>0.8",
			reply:  "你可以先倾听孩子的想法。",
			score:  0.8,
			scored: true,
		},
		{
			name:   "low score",
			raw:    "随便回答一下<score>0.4",
			reply:  "随便回答一下",
			score:  0.4,
			scored: true,
		},
		{
			name:   "explicit zero is still a parsed score",
			raw:    "text<score>0.0",
			reply:  "text",
			score:  0.0,
			scored: true,
		},
		{
			name:   "no marker keeps full text",
			raw:    "plain reply without score",
			reply:  "plain reply without score",
			score:  0.0,
			scored: false,
		},
		{
			name:   "malformed number keeps full text",
			raw:    "reply<score>..",
			reply:  "reply<score>..",
			score:  0.0,
			scored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, score, scored := extractScore(tt.raw)
			assert.Equal(t, tt.reply, reply)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.scored, scored)
		})
	}
}

func TestSplitSegments(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{
			name:  "two paragraphs",
			reply: "第一段。\n\n第二段。",
			want:  []string{"第一段。", "第二段。"},
		},
		{
			name:  "single paragraph",
			reply: "只有一段。",
			want:  []string{"只有一段。"},
		},
		{
			name:  "blank paragraphs dropped",
			reply: "a\n\n\n\n  \n\nb",
			want:  []string{"a", "b"},
		},
		{
			name:  "empty reply",
			reply: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSegments(tt.reply))
		})
	}
}
