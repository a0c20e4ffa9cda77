package supervisor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
)

// ExitStatusError carries the primary command's exit status when the child
// handoff fallback was used instead of a process replace.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("primary command exited with status %d", e.Code)
}

// runAsChild spawns argv as a child process with inherited standard streams,
// forwards SIGINT/SIGTERM to it, and waits for completion. It always returns
// an *ExitStatusError when the child ran, including a zero status.
func runAsChild(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start primary command: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigCh:
			_ = cmd.Process.Signal(sig)
		case err := <-done:
			if err == nil {
				return &ExitStatusError{Code: 0}
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &ExitStatusError{Code: exitErr.ExitCode()}
			}
			return err
		}
	}
}
