//go:build !linux

package executor

import "os/exec"

func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Kill()
	}
}

// reapGroup is a no-op without process groups.
func reapGroup(*exec.Cmd) error { return nil }
