package executor

import (
	"fmt"
	"os/exec"
	"strings"

	"pysnip/internal/domain"
)

// Isolation prepares a command before it is started.
type Isolation interface {
	Mode() domain.IsolationMode
	Prepare(cmd *exec.Cmd) error
}

type directIsolation struct{}

func (directIsolation) Mode() domain.IsolationMode { return domain.IsolationDirect }

func (directIsolation) Prepare(*exec.Cmd) error { return nil }

// sandboxedIsolation currently runs commands exactly like direct mode.
type sandboxedIsolation struct{}

func (sandboxedIsolation) Mode() domain.IsolationMode { return domain.IsolationSandboxed }

func (sandboxedIsolation) Prepare(*exec.Cmd) error { return nil }

// IsolationFor resolves a configured mode. An empty mode means direct.
func IsolationFor(mode domain.IsolationMode) (Isolation, error) {
	switch domain.IsolationMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case "", domain.IsolationDirect:
		return directIsolation{}, nil
	case domain.IsolationSandboxed:
		return sandboxedIsolation{}, nil
	default:
		return nil, domain.E(domain.CodeInvalidArgument, "execution.mode", fmt.Sprintf("unknown isolation mode %q", mode), nil)
	}
}
