package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// followSubcommand is the hidden CLI subcommand that runs the log follower.
// The child re-reads the configuration itself, so follower settings do not
// need to cross the process boundary.
const followSubcommand = "follow"

// spawnFollower is the default follower starter. It re-execs the running
// binary with the follow subcommand as a detached child. The handoff replaces
// this process image, so an in-process follower would die with it; a released
// child keeps tailing the scheduler log for the container lifetime, writing
// to the inherited stdout.
func spawnFollower(ctx context.Context, path string, log *logger.Logger) error {
	argv, err := followerArgv(path)
	if err != nil {
		return err
	}

	pid, err := startDetached(argv)
	if err != nil {
		return fmt.Errorf("failed to start follower process: %w", err)
	}

	log.Info("log follower started",
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "pid", Value: pid})

	return nil
}

// followerArgv builds the argument vector for the follower child process.
func followerArgv(path string) ([]string, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve own binary for follower: %w", err)
	}
	return []string{self, followSubcommand, path}, nil
}

// startDetached starts argv as a child sharing this process's standard
// streams and releases it, so the child is not tied to our lifetime.
// Returns the child pid.
func startDetached(argv []string) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release follower process: %w", err)
	}

	return pid, nil
}
