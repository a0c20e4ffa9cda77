package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ceyeborg/virusradar/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

// recorder captures which process primitives the supervisor invoked.
type recorder struct {
	daemonStarted  bool
	followerPath   string
	execArgv       []string
	lookPathErr    error
	daemonStartErr error
}

func newSupervisor(t *testing.T, cfg Config, rec *recorder) *Supervisor {
	t.Helper()
	return New(cfg, testLogger(t),
		WithLookPath(func(file string) (string, error) {
			if rec.lookPathErr != nil {
				return "", rec.lookPathErr
			}
			return "/usr/sbin/" + file, nil
		}),
		WithDaemonStarter(func(ctx context.Context, argv []string) error {
			rec.daemonStarted = true
			return rec.daemonStartErr
		}),
		WithFollowerStarter(func(ctx context.Context, path string) error {
			rec.followerPath = path
			return nil
		}),
		WithExec(func(argv []string) error {
			rec.execArgv = argv
			return nil
		}),
	)
}

func baseConfig() Config {
	return Config{
		Policy:          PolicyStrictFollow,
		SchedulerBinary: "cron",
		StartCommand:    []string{"service", "cron", "start"},
		LogFile:         "/var/log/cron.log",
	}
}

func TestRun_SchedulerAbsent_StillHandsOff(t *testing.T) {
	rec := &recorder{lookPathErr: errors.New("executable file not found in $PATH")}
	cfg := baseConfig()
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if rec.daemonStarted {
		t.Error("Daemon start attempted although scheduler binary is absent")
	}
	if rec.execArgv == nil {
		t.Fatal("Handoff did not happen")
	}
}

func TestRun_StrictPolicy_DaemonFailureAbortsBeforeHandoff(t *testing.T) {
	for _, policy := range []Policy{PolicyStrict, PolicyStrictFollow} {
		t.Run(string(policy), func(t *testing.T) {
			rec := &recorder{daemonStartErr: errors.New("service cron start failed")}
			cfg := baseConfig()
			cfg.Policy = policy
			s := newSupervisor(t, cfg, rec)

			err := s.Run(context.Background(), []string{"run", "app.py"})
			if err == nil {
				t.Fatal("Run() error = nil, want fatal scheduler start failure")
			}
			if rec.execArgv != nil {
				t.Errorf("Primary command was invoked despite strict policy: %v", rec.execArgv)
			}
		})
	}
}

func TestRun_BestEffortPolicy_DaemonFailureStillHandsOff(t *testing.T) {
	rec := &recorder{daemonStartErr: errors.New("service cron start failed")}
	cfg := baseConfig()
	cfg.Policy = PolicyBestEffort
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.execArgv == nil {
		t.Fatal("Handoff did not happen under best-effort policy")
	}
}

func TestRun_MissingLogFile_IsNonFatal(t *testing.T) {
	rec := &recorder{}
	cfg := baseConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "absent.log")
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.followerPath != "" {
		t.Errorf("Follower was started against a missing file: %s", rec.followerPath)
	}
	if rec.execArgv == nil {
		t.Fatal("Handoff did not happen")
	}
}

func TestRun_ReadableLogFile_SpawnsFollowerAndProceeds(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cron.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}

	rec := &recorder{}
	cfg := baseConfig()
	cfg.LogFile = logPath
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.followerPath != logPath {
		t.Errorf("Follower path = %q, want %q", rec.followerPath, logPath)
	}
	if rec.execArgv == nil {
		t.Fatal("Handoff did not happen after follower spawn")
	}
}

func TestRun_EnsureLogFile_CreatesIt(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cron.log")

	rec := &recorder{}
	cfg := baseConfig()
	cfg.LogFile = logPath
	cfg.EnsureLogFile = true
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("Log file was not created: %v", err)
	}
	if rec.followerPath != logPath {
		t.Errorf("Follower path = %q, want %q", rec.followerPath, logPath)
	}
}

func TestRun_StrictPolicy_NoFollower(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cron.log")
	if err := os.WriteFile(logPath, nil, 0644); err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}

	rec := &recorder{}
	cfg := baseConfig()
	cfg.Policy = PolicyStrict
	cfg.LogFile = logPath
	s := newSupervisor(t, cfg, rec)

	if err := s.Run(context.Background(), []string{"run", "app.py"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rec.followerPath != "" {
		t.Errorf("Follower started under plain strict policy: %s", rec.followerPath)
	}
}

func TestRun_ArgumentVectorPassedThroughUnchanged(t *testing.T) {
	rec := &recorder{}
	s := newSupervisor(t, baseConfig(), rec)

	argv := []string{"streamlit", "run", "app.py", "--server.port", "8501"}
	if err := s.Run(context.Background(), argv); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !reflect.DeepEqual(rec.execArgv, argv) {
		t.Errorf("Handoff argv = %v, want %v", rec.execArgv, argv)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	rec := &recorder{}
	s := newSupervisor(t, baseConfig(), rec)

	if err := s.Run(context.Background(), nil); err == nil {
		t.Fatal("Run() error = nil, want error for empty command vector")
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{"best-effort", PolicyBestEffort, false},
		{"strict", PolicyStrict, false},
		{"strict-follow", PolicyStrictFollow, false},
		{"lenient", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePolicy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRunAsChild_PropagatesExitStatus(t *testing.T) {
	err := runAsChild([]string{"sh", "-c", "exit 3"})

	var exitErr *ExitStatusError
	if !errors.As(err, &exitErr) {
		t.Fatalf("runAsChild() error = %v, want *ExitStatusError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Exit code = %d, want 3", exitErr.Code)
	}
}

func TestRunAsChild_ZeroStatus(t *testing.T) {
	err := runAsChild([]string{"sh", "-c", "exit 0"})

	var exitErr *ExitStatusError
	if !errors.As(err, &exitErr) {
		t.Fatalf("runAsChild() error = %v, want *ExitStatusError", err)
	}
	if exitErr.Code != 0 {
		t.Errorf("Exit code = %d, want 0", exitErr.Code)
	}
}

func TestRunAsChild_MissingBinary(t *testing.T) {
	err := runAsChild([]string{"/nonexistent/binary"})
	if err == nil {
		t.Fatal("runAsChild() error = nil, want start failure")
	}
	var exitErr *ExitStatusError
	if errors.As(err, &exitErr) {
		t.Errorf("runAsChild() returned exit status %d for a command that never started", exitErr.Code)
	}
}
