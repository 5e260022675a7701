// Package receiver runs the radio receiver as a child process and yields its
// stdout one line at a time.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	"github.com/couchcryptid/pool-weather-logger/internal/pipeline"
)

// waitDelay bounds how long Close waits for the pipes to drain after the
// process has been killed.
const waitDelay = 2 * time.Second

// maxStderrTail is how many of the latest stderr lines are kept for the exit
// log.
const maxStderrTail = 5

type line struct {
	text string
	err  error
}

// Stream is a running receiver process.
type Stream struct {
	cmd    *exec.Cmd
	lines  chan line
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
	drained   chan struct{}

	mu     sync.Mutex
	stderr []string
}

// Start launches argv[0] with the remaining arguments. Stdout is read line by
// line through Next; stderr is forwarded to the logger at debug level and its
// last lines are repeated at warn level if the process exits with a non-zero
// status. The process is killed when ctx is cancelled or Close is called.
func Start(ctx context.Context, argv []string, logger *slog.Logger) (*Stream, error) {
	if len(argv) == 0 {
		return nil, errors.New("receiver: empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // command comes from operator config
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("receiver: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("receiver: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("receiver: start %s: %w", argv[0], err)
	}

	s := &Stream{
		cmd:    cmd,
		lines:  make(chan line),
		logger:  logger,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.forwardStderr(stderr)
	}()
	go func() {
		defer wg.Done()
		s.scanStdout(stdout)
	}()
	go func() {
		// Pipes must be drained before Wait.
		wg.Wait()
		close(s.lines)
		close(s.drained)
	}()

	logger.Info("receiver started", "command", argv[0], "pid", cmd.Process.Pid)
	return s, nil
}

// Next blocks until the receiver produces a line. It returns io.EOF once the
// process closes stdout, or ctx.Err() if ctx is cancelled first. The
// returned line has its trailing newline removed and is otherwise untouched.
func (s *Stream) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Close stops the receiver and reaps it. Safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("receiver kill", "error", err)
		}
		// Let the readers finish so the stderr tail is complete.
		select {
		case <-s.drained:
		case <-time.After(waitDelay):
		}
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr) && exitErr.ExitCode() > 0:
			s.logger.Warn("receiver exited with error",
				"exit_code", exitErr.ExitCode(),
				"stderr", s.stderrTail(),
			)
		case errors.As(err, &exitErr):
			s.logger.Info("receiver stopped", "exit", exitErr.String())
		case err != nil:
			s.closeErr = fmt.Errorf("receiver: wait: %w", err)
		default:
			s.logger.Info("receiver stopped", "exit", 0)
		}
	})
	return s.closeErr
}

func (s *Stream) scanStdout(r io.Reader) {
	src := pipeline.NewReaderSource(r)
	for {
		text, err := src.Next(context.Background())
		switch {
		case errors.Is(err, io.EOF):
			return
		case err != nil && !errors.Is(err, domain.ErrDecode):
			s.send(line{err: fmt.Errorf("receiver: read stdout: %w", err)})
			return
		}
		if !s.send(line{text: text, err: err}) {
			return
		}
	}
}

func (s *Stream) send(l line) bool {
	select {
	case s.lines <- l:
		return true
	case <-s.done:
		return false
	}
}

func (s *Stream) forwardStderr(r io.Reader) {
	src := pipeline.NewReaderSource(r)
	for {
		text, err := src.Next(context.Background())
		if errors.Is(err, domain.ErrDecode) {
			continue
		}
		if err != nil {
			return
		}
		s.logger.Debug("receiver stderr", "line", text)

		s.mu.Lock()
		s.stderr = append(s.stderr, text)
		if len(s.stderr) > maxStderrTail {
			s.stderr = s.stderr[1:]
		}
		s.mu.Unlock()
	}
}

// stderrTail returns the most recent stderr lines, oldest first.
func (s *Stream) stderrTail() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stderr...)
}
