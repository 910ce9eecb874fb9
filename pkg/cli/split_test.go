package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"tasks", []string{"tasks"}},
		{"  move  task-1   done ", []string{"move", "task-1", "done"}},
		{`add "Q3: Report, Draft" --priority high`, []string{"add", "Q3: Report, Draft", "--priority", "high"}},
		{`add 'it''s'`, []string{"add", "its"}},
		{`chat 'say "hi"'`, []string{"chat", `say "hi"`}},
		{`chat "say \"hi\" \\ ok"`, []string{"chat", `say "hi" \ ok`}},
		{`add Fix\ login`, []string{"add", "Fix login"}},
		{`edit task-1 --desc ""`, []string{"edit", "task-1", "--desc", ""}},
		{`add pre"fix"ed`, []string{"add", "prefixed"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Split(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitUnterminated(t *testing.T) {
	for _, in := range []string{`add "open`, `add 'open`, `add trailing\`} {
		_, err := Split(in)
		assert.ErrorIs(t, err, errUnterminatedQuote, in)
	}
}
