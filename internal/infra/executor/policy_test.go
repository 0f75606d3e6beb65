package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysnip/internal/domain"
)

func TestPolicy_Check(t *testing.T) {
	policy := NewPolicy(domain.DefaultProhibited)
	tests := []struct {
		name    string
		params  map[string]any
		blocked bool
	}{
		{name: "clean", params: map[string]any{"name": "report.csv", "count": 3}},
		{name: "plain match", params: map[string]any{"cmd": "rm -rf /"}, blocked: true},
		{name: "case folded", params: map[string]any{"cmd": "SHUTDOWN now"}, blocked: true},
		{name: "fullwidth lookalike", params: map[string]any{"cmd": "ｒｍ -ｒｆ /"}, blocked: true},
		{name: "inside list", params: map[string]any{"args": []any{"ok", "mkfs.ext4 /dev/sda"}}, blocked: true},
		{name: "key checked", params: map[string]any{"reboot": true}, blocked: true},
		{name: "false flag", params: map[string]any{"verbose": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.params)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrPolicyViolation)
			code, ok := domain.CodeFrom(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodePolicyViolation, code)
		})
	}
}

func TestPolicy_EmptyDenylist(t *testing.T) {
	policy := NewPolicy([]string{"", "  "})
	assert.Empty(t, policy.Patterns())
	assert.NoError(t, policy.Check(map[string]any{"cmd": "rm -rf /"}))
}
