package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   []string
	}{
		{
			name:   "booleans and strings",
			params: map[string]any{"verbose": true, "name": "x", "skip": false},
			want:   []string{"python3", "tool.py", "--name", "x", "--verbose"},
		},
		{
			name:   "dash prefixed keys kept",
			params: map[string]any{"-v": true, "--out": "a.txt"},
			want:   []string{"python3", "tool.py", "--out", "a.txt", "-v"},
		},
		{
			name:   "empty and nil values dropped",
			params: map[string]any{"empty": "", "missing": nil},
			want:   []string{"python3", "tool.py"},
		},
		{
			name:   "numbers",
			params: map[string]any{"count": float64(5), "ratio": 0.25, "limit": 10},
			want:   []string{"python3", "tool.py", "--count", "5", "--limit", "10", "--ratio", "0.25"},
		},
		{
			name:   "lists",
			params: map[string]any{"files": []any{"a.csv", "b.csv"}, "tags": []string{}},
			want:   []string{"python3", "tool.py", "--files", "a.csv", "b.csv"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildArgs("python3", "tool.py", tt.params))
		})
	}
}

func TestCommandLine(t *testing.T) {
	got := CommandLine([]string{"python3", "tool.py", "--name", "two words", "--empty", ""})
	assert.Equal(t, `python3 tool.py --name "two words" --empty ""`, got)
}
