// Package supervisor implements the container entrypoint behavior: start the
// OS-level periodic-task scheduler if present, optionally attach a follower to
// its log file, then hand control to the configured primary command.
//
// The supervisor is strictly sequential. The scheduler daemon and the log
// follower are fire-and-forget; neither is awaited. The handoff replaces the
// supervisor process, so on success Run never returns; the follower runs as
// its own process and outlives the handoff.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// Policy selects the failure semantics for scheduler daemon startup.
type Policy string

const (
	// PolicyBestEffort ignores a scheduler start failure and hands off anyway.
	PolicyBestEffort Policy = "best-effort"
	// PolicyStrict aborts before the primary command runs if the scheduler
	// daemon cannot be started.
	PolicyStrict Policy = "strict"
	// PolicyStrictFollow behaves like PolicyStrict and additionally follows
	// the scheduler log file after a successful start. Follower setup
	// failures are never fatal.
	PolicyStrictFollow Policy = "strict-follow"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyBestEffort, PolicyStrict, PolicyStrictFollow:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("invalid supervisor policy: %q (expected: best-effort, strict, strict-follow)", s)
	}
}

// Config holds supervisor settings.
type Config struct {
	Policy          Policy
	SchedulerBinary string   // executable probed on PATH (e.g. "cron")
	StartCommand    []string // argv used to start the scheduler daemon
	LogFile         string   // scheduler log file for the optional follower
	EnsureLogFile   bool     // touch the log file before following it
}

// Supervisor runs the entrypoint sequence. The process-level primitives are
// injectable so the sequence is testable without replacing the test process.
type Supervisor struct {
	cfg Config
	log *logger.Logger

	lookPath      func(file string) (string, error)
	startDaemon   func(ctx context.Context, argv []string) error
	startFollower func(ctx context.Context, path string) error
	execProcess   func(argv []string) error
}

// Option customizes a Supervisor. Used by tests to inject fakes.
type Option func(*Supervisor)

// WithLookPath overrides PATH lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(s *Supervisor) { s.lookPath = fn }
}

// WithDaemonStarter overrides how the scheduler daemon is started.
func WithDaemonStarter(fn func(context.Context, []string) error) Option {
	return func(s *Supervisor) { s.startDaemon = fn }
}

// WithFollowerStarter overrides how the log follower is spawned.
func WithFollowerStarter(fn func(context.Context, string) error) Option {
	return func(s *Supervisor) { s.startFollower = fn }
}

// WithExec overrides the process-replace handoff.
func WithExec(fn func([]string) error) Option {
	return func(s *Supervisor) { s.execProcess = fn }
}

// New creates a supervisor with platform defaults for all process primitives.
func New(cfg Config, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:         cfg,
		log:         log,
		lookPath:    exec.LookPath,
		startDaemon: startDaemonCommand,
		execProcess: handoff,
	}
	s.startFollower = func(ctx context.Context, path string) error {
		return spawnFollower(ctx, path, log)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the entrypoint sequence and hands off to argv.
//
// On a successful handoff Run does not return. It returns an error when the
// scheduler daemon fails to start under a strict policy, when argv is empty,
// or when the handoff itself fails. A *ExitStatusError is returned when the
// fallback child handoff was used and the child exited.
func (s *Supervisor) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command to hand off")
	}

	if err := s.startScheduler(ctx); err != nil {
		return err
	}

	s.log.Info("handing off to primary command",
		logger.Field{Key: "command", Value: argv[0]},
		logger.Field{Key: "args", Value: len(argv) - 1})

	// Process-replace semantics: the vector is passed through untouched.
	return s.execProcess(argv)
}

// startScheduler performs steps 1-3 of the entrypoint sequence.
func (s *Supervisor) startScheduler(ctx context.Context) error {
	if _, err := s.lookPath(s.cfg.SchedulerBinary); err != nil {
		// Missing scheduler binary is an informational skip, not an error.
		s.log.Info("scheduler binary not found, skipping periodic tasks",
			logger.Field{Key: "binary", Value: s.cfg.SchedulerBinary})
		return nil
	}

	if err := s.startDaemon(ctx, s.cfg.StartCommand); err != nil {
		if s.cfg.Policy == PolicyBestEffort {
			s.log.Warn("scheduler daemon failed to start, continuing",
				logger.Field{Key: "error", Value: err.Error()})
			return nil
		}
		fmt.Fprintf(os.Stderr, "failed to start scheduler daemon: %v\n", err)
		return fmt.Errorf("failed to start scheduler daemon: %w", err)
	}

	s.log.Info("scheduler daemon started",
		logger.Field{Key: "command", Value: s.cfg.StartCommand[0]})

	if s.cfg.Policy == PolicyStrictFollow {
		s.followLog(ctx)
	}

	return nil
}

// followLog attaches a follower to the scheduler log. Never fatal.
func (s *Supervisor) followLog(ctx context.Context) {
	path := s.cfg.LogFile

	if s.cfg.EnsureLogFile {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			f.Close()
		}
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduler log %s not readable, skipping follower: %v\n", path, err)
		s.log.Warn("scheduler log not readable, skipping follower",
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "error", Value: err.Error()})
		return
	}
	f.Close()

	if err := s.startFollower(ctx, path); err != nil {
		s.log.Warn("failed to start log follower",
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

// startDaemonCommand starts the scheduler daemon via its service command and
// waits for the command to report success. The daemon itself detaches.
func startDaemonCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty scheduler start command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
