// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package claudecode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/parleyhq/parley/lib/adapter"
	"github.com/parleyhq/parley/lib/event"
)

// AdapterID is the registry identifier for this backend.
const AdapterID = "claude-code"

// binaryEnvVar overrides the claude binary path.
const binaryEnvVar = "PARLEY_CLAUDE_BINARY"

// stopGracePeriod is how long Stop waits after SIGINT before
// escalating to SIGKILL.
const stopGracePeriod = 10 * time.Second

// Options configures a Claude Code adapter instance.
type Options struct {
	// Binary is the claude executable. Empty resolves from
	// PARLEY_CLAUDE_BINARY, then "claude" on PATH.
	Binary string

	// Logger receives adapter-internal diagnostics. Nil means a
	// default stderr logger.
	Logger *slog.Logger
}

// Adapter drives one Claude Code CLI process. It implements
// adapter.Adapter.
type Adapter struct {
	binary string
	logger *slog.Logger

	mu      sync.Mutex
	status  adapter.Status
	command *exec.Cmd
	stdin   io.WriteCloser

	// emitMu serializes event emission against channel close. The
	// waiter goroutine closes the channel once the process has exited
	// and the reader has drained.
	emitMu sync.Mutex
	closed bool
	events chan event.Event

	// done is closed when the process has exited and all events have
	// been emitted.
	done chan struct{}
}

// New creates an adapter in the idle state. No process is spawned
// until Start.
func New(options Options) *Adapter {
	binary := options.Binary
	if binary == "" {
		binary = os.Getenv(binaryEnvVar)
	}
	if binary == "" {
		binary = "claude"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Adapter{
		binary: binary,
		logger: logger,
		status: adapter.StatusIdle,
		events: make(chan event.Event, 64),
		done:   make(chan struct{}),
	}
}

// Info implements adapter.Adapter.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		ID:   AdapterID,
		Name: "Claude Code",
		Features: adapter.Features{
			Streaming:    true,
			Tools:        true,
			PauseResume:  false,
			SystemPrompt: true,
		},
	}
}

// IsAvailable reports whether the claude binary is resolvable.
func (a *Adapter) IsAvailable(ctx context.Context) (bool, error) {
	if _, err := exec.LookPath(a.binary); err != nil {
		return false, nil
	}
	return true, nil
}

// Status implements adapter.Adapter.
func (a *Adapter) Status() adapter.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Events implements adapter.Adapter.
func (a *Adapter) Events() <-chan event.Event {
	return a.events
}

// Start spawns the claude process with stream-json input and output.
func (a *Adapter) Start(ctx context.Context, options adapter.StartOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.status != adapter.StatusIdle {
		return fmt.Errorf("%w: start while %s", adapter.ErrInvalidState, a.status)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	a.setStatusLocked(adapter.StatusStarting)

	// ctx covers the Start call, not the process: callers cancel their
	// request context after acceptance, and the turn keeps running.
	// Only Stop terminates the process.
	command := exec.Command(a.binary, buildArgs(options)...)
	if options.WorkingDirectory != "" {
		command.Dir = options.WorkingDirectory
	}
	command.Stderr = os.Stderr

	stdin, err := command.StdinPipe()
	if err != nil {
		a.setStatusLocked(adapter.StatusStopped)
		return fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := command.StdoutPipe()
	if err != nil {
		stdin.Close()
		a.setStatusLocked(adapter.StatusStopped)
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	if err := command.Start(); err != nil {
		stdin.Close()
		a.setStatusLocked(adapter.StatusStopped)
		return fmt.Errorf("starting %s: %w", a.binary, err)
	}

	a.command = command
	a.stdin = stdin
	a.setStatusLocked(adapter.StatusRunning)

	readerDone := make(chan struct{})
	go a.readOutput(stdout, readerDone)
	go a.waitForExit(readerDone)

	return nil
}

// Send injects one user message as a stream-json line on stdin.
func (a *Adapter) Send(ctx context.Context, message adapter.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.status {
	case adapter.StatusIdle, adapter.StatusRunning:
	default:
		return fmt.Errorf("%w: send while %s", adapter.ErrInvalidState, a.status)
	}
	if a.stdin == nil {
		return fmt.Errorf("%w: send before start", adapter.ErrInvalidState)
	}

	line, err := json.Marshal(map[string]any{
		"type": "user",
		"message": map[string]any{
			"role": "user",
			"content": []map[string]string{
				{"type": "text", "text": message.Text},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("encoding user message: %w", err)
	}
	if _, err := fmt.Fprintf(a.stdin, "%s\n", line); err != nil {
		return fmt.Errorf("writing to claude stdin: %w", err)
	}

	if a.status == adapter.StatusIdle {
		a.setStatusLocked(adapter.StatusRunning)
	}
	return nil
}

// Stop requests graceful termination: stdin close plus SIGINT, then
// SIGKILL after the grace period. Idempotent.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	switch a.status {
	case adapter.StatusStopped:
		a.mu.Unlock()
		return nil
	case adapter.StatusStopping:
		a.mu.Unlock()
		return a.awaitExit(ctx)
	}
	if a.command == nil {
		// Never started: stopped is immediate, no process to reap.
		a.setStatusLocked(adapter.StatusStopping)
		a.setStatusLocked(adapter.StatusStopped)
		a.mu.Unlock()
		a.emitStatus(adapter.StatusStopped)
		a.closeEvents()
		close(a.done)
		return nil
	}

	a.setStatusLocked(adapter.StatusStopping)
	if a.stdin != nil {
		a.stdin.Close()
	}
	if process := a.command.Process; process != nil {
		if err := process.Signal(syscall.SIGINT); err != nil {
			a.logger.Warn("signaling claude process", "error", err)
		}
	}
	command := a.command
	a.mu.Unlock()

	// Escalate if the process ignores SIGINT.
	escalate := time.AfterFunc(stopGracePeriod, func() {
		if process := command.Process; process != nil {
			a.logger.Warn("claude ignored SIGINT, sending SIGKILL")
			process.Signal(syscall.SIGKILL)
		}
	})
	defer escalate.Stop()

	return a.awaitExit(ctx)
}

// Pause implements adapter.Adapter. Claude Code has no suspend
// support.
func (a *Adapter) Pause(ctx context.Context) error {
	return fmt.Errorf("%w: pause", adapter.ErrNotSupported)
}

// Resume implements adapter.Adapter.
func (a *Adapter) Resume(ctx context.Context) error {
	return fmt.Errorf("%w: resume", adapter.ErrNotSupported)
}

// awaitExit blocks until the process has exited and the event channel
// is closed, or the context is cancelled.
func (a *Adapter) awaitExit(ctx context.Context) error {
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readOutput scans stdout and emits normalized events. A result
// record returns the adapter to idle — that is the turn boundary.
func (a *Adapter) readOutput(stdout io.Reader, readerDone chan<- struct{}) {
	defer close(readerDone)

	scanner := bufio.NewScanner(stdout)
	// Tool results routinely carry whole files; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		for _, e := range normalizeLine(line) {
			a.emit(e)
		}
		if isTurnEnd(line) {
			a.mu.Lock()
			if a.status == adapter.StatusRunning {
				a.setStatusLocked(adapter.StatusIdle)
			}
			a.mu.Unlock()
		}
	}
	if err := scanner.Err(); err != nil {
		a.logger.Warn("reading claude stdout", "error", err)
	}
}

// waitForExit reaps the process, emits the terminal status, and closes
// the event channel. An exit during a turn (not requested via Stop) is
// reported as a fatal error event.
func (a *Adapter) waitForExit(readerDone <-chan struct{}) {
	err := a.command.Wait()
	<-readerDone

	a.mu.Lock()
	requested := a.status == adapter.StatusStopping
	interrupted := a.status == adapter.StatusRunning
	a.setStatusLocked(adapter.StatusStopped)
	a.mu.Unlock()

	if !requested && err != nil {
		a.logger.Error("claude exited unexpectedly", "error", err)
		a.emit(event.NewFatalError(
			fmt.Sprintf("claude process exited: %v", err), "process_exit"))
	} else if interrupted {
		a.emit(event.NewInterrupted("claude process exited mid-turn"))
	}
	a.emitStatus(adapter.StatusStopped)

	a.closeEvents()
	close(a.done)
}

// setStatusLocked updates the state and emits a status event. The
// caller holds mu. Terminal stopped status is emitted by waitForExit
// after any error event, so it is skipped here to preserve ordering.
func (a *Adapter) setStatusLocked(status adapter.Status) {
	if a.status == status {
		return
	}
	a.status = status
	if status != adapter.StatusStopped {
		a.emitStatus(status)
	}
}

func (a *Adapter) emitStatus(status adapter.Status) {
	a.emit(event.NewStatus(status.String()))
}

// emit delivers an event unless the channel is already closed.
func (a *Adapter) emit(e event.Event) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	if a.closed {
		return
	}
	a.events <- e
}

func (a *Adapter) closeEvents() {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.events)
}

// buildArgs assembles the claude invocation for the given start
// options.
func buildArgs(options adapter.StartOptions) []string {
	arguments := []string{
		"--print",
		"--verbose",
		"--input-format", "stream-json",
		"--output-format", "stream-json",
	}
	if options.SystemPrompt != "" {
		arguments = append(arguments, "--append-system-prompt", options.SystemPrompt)
	}
	if len(options.AllowedTools) > 0 {
		arguments = append(arguments, "--allowedTools", strings.Join(options.AllowedTools, ","))
	}
	if options.ResumeContext != "" {
		arguments = append(arguments, "--resume", options.ResumeContext)
	}
	return arguments
}
