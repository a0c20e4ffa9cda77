// Package follower tails an append-only log file and forwards new lines to
// an output stream, so scheduler output stays visible in the container's
// combined log. The file has a single writer and a single reader; no
// coordination beyond polling is needed.
package follower

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	re2 "github.com/wasilibs/go-re2"

	"github.com/ceyeborg/virusradar/internal/logger"
)

const defaultPollInterval = 500 * time.Millisecond

// Config holds follower settings.
type Config struct {
	PollInterval time.Duration // how often to poll for appended bytes
	FromStart    bool          // read the whole file instead of only new bytes
	// FilterPattern, when set, drops lines that do not match. The pattern is
	// user-supplied and compiled with re2 for linear-time matching.
	FilterPattern string
	Output        io.Writer // destination stream, defaults to os.Stdout
}

// Follower tails a single file.
type Follower struct {
	cfg    Config
	log    *logger.Logger
	filter *re2.Regexp
	out    io.Writer
}

// New creates a follower. An invalid filter pattern is a setup error.
func New(cfg Config, log *logger.Logger) (*Follower, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var filter *re2.Regexp
	if cfg.FilterPattern != "" {
		var err error
		filter, err = re2.Compile(cfg.FilterPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid follower filter pattern: %w", err)
		}
	}

	return &Follower{
		cfg:    cfg,
		log:    log,
		filter: filter,
		out:    cfg.Output,
	}, nil
}

// Start opens the file and begins following it in a background goroutine.
// It returns immediately; the follower stops when ctx is cancelled. The
// follower is never joined.
func (f *Follower) Start(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if !f.cfg.FromStart {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return fmt.Errorf("failed to seek log file: %w", err)
		}
	}

	f.log.Debug("log follower started",
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "poll_interval", Value: f.cfg.PollInterval})

	go f.run(ctx, file, path)

	return nil
}

// run is the poll loop. It reads appended bytes, splits them into lines, and
// forwards complete lines. A shrinking file means truncation: reopen from
// the start.
func (f *Follower) run(ctx context.Context, file *os.File, path string) {
	defer file.Close()

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	var partial bytes.Buffer

	for {
		select {
		case <-ctx.Done():
			f.log.Debug("log follower stopped", logger.Field{Key: "path", Value: path})
			return
		case <-ticker.C:
			offset, err := file.Seek(0, io.SeekCurrent)
			if err != nil {
				f.log.Warn("log follower lost its position",
					logger.Field{Key: "path", Value: path},
					logger.Field{Key: "error", Value: err.Error()})
				return
			}

			info, err := os.Stat(path)
			if err == nil && info.Size() < offset {
				// Truncated underneath us
				if _, err := file.Seek(0, io.SeekStart); err != nil {
					return
				}
				partial.Reset()
			}

			f.drain(file, &partial)
		}
	}
}

// drain reads everything currently available and emits complete lines.
func (f *Follower) drain(file *os.File, partial *bytes.Buffer) {
	buf := make([]byte, 32*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			partial.Write(buf[:n])
			f.emitLines(partial)
		}
		if err != nil {
			return
		}
	}
}

// emitLines forwards each complete line in the buffer, leaving any trailing
// partial line in place.
func (f *Follower) emitLines(partial *bytes.Buffer) {
	for {
		data := partial.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return
		}
		line := string(data[:idx])
		partial.Next(idx + 1)

		if f.filter != nil && !f.filter.MatchString(line) {
			continue
		}
		fmt.Fprintln(f.out, line)
	}
}
