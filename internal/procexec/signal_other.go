//go:build !unix

package procexec

import (
	"errors"
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New("process not started")
	}
	err := cmd.Process.Signal(os.Interrupt)
	if err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

func kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New("process not started")
	}
	return cmd.Process.Kill()
}

func signalExitCode(exitErr *exec.ExitError) int {
	return -1
}
