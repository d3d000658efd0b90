package tsserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds synchronous waits when no timeout is
// configured.
const DefaultRequestTimeout = 10 * time.Second

// Registry owns one analysis server session per project root. It is the
// only writer of the project-to-session mapping: sessions enter on Start and
// leave when their process exits or is explicitly stopped.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	command  string
	args     []string
	env      map[string]string
	timeout  time.Duration
	verbose  bool
	maxFrame int

	onTerminate   func(project string, err error)
	onDiagnostics func(project, file string, diags []Diagnostic)
}

// RegistryOption configures the registry.
type RegistryOption func(*Registry)

// WithCommand sets the server executable. Default: tsserver.
func WithCommand(command string, args ...string) RegistryOption {
	return func(r *Registry) {
		r.command = command
		r.args = args
	}
}

// WithEnv sets additional environment variables for server processes.
func WithEnv(env map[string]string) RegistryOption {
	return func(r *Registry) {
		r.env = env
	}
}

// WithRequestTimeout sets the synchronous wait budget for all sessions.
func WithRequestTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithVerbose enables verbose server-side logging via the TSS_LOG toggle.
func WithVerbose(verbose bool) RegistryOption {
	return func(r *Registry) {
		r.verbose = verbose
	}
}

// WithMaxFrameSize caps the size of a single inbound frame body. Values of
// zero or less keep the built-in limit.
func WithMaxFrameSize(n int) RegistryOption {
	return func(r *Registry) {
		r.maxFrame = n
	}
}

// WithDiagnosticsCallback sets a hook invoked for every inbound diagnostics
// event, whether or not a queued callback consumes it. It runs on the
// session's read goroutine; slow handlers stall message dispatch.
func WithDiagnosticsCallback(cb func(project, file string, diags []Diagnostic)) RegistryOption {
	return func(r *Registry) {
		r.onDiagnostics = cb
	}
}

// WithTerminateCallback sets a hook invoked after a session has been torn
// down and removed, with the process exit error if any. The hook runs after
// all pending work for the project has been failed; it must not assume a
// replacement session exists.
func WithTerminateCallback(cb func(project string, err error)) RegistryOption {
	return func(r *Registry) {
		r.onTerminate = cb
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		command:  "tsserver",
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconfigure applies new settings to the registry. Running sessions keep
// the settings they were launched with; new values take effect on the next
// Start or Restart.
func (r *Registry) Reconfigure(opts ...RegistryOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range opts {
		opt(r)
	}
}

// Start launches a server for the project root and registers the session.
// It fails with ErrAlreadyStarted when a session for the project exists;
// restarting is an explicit, separate operation.
func (r *Registry) Start(ctx context.Context, project string) (*Session, error) {
	project, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[project]; exists {
		return nil, ErrAlreadyStarted
	}

	sess, err := r.launch(ctx, project)
	if err != nil {
		return nil, err
	}

	r.sessions[project] = sess
	return sess, nil
}

// launch spawns the server process rooted at the project directory and
// wires up the session. Caller holds r.mu.
func (r *Registry) launch(ctx context.Context, project string) (*Session, error) {
	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Dir = project

	cmd.Env = os.Environ()
	for k, v := range r.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if r.verbose {
		cmd.Env = append(cmd.Env, "TSS_LOG=-level verbose")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start %s: %w", r.command, err)
	}

	sess := newSession(project, stdin, stdout, cmd, r.timeout)
	if r.maxFrame > 0 {
		sess.dec = NewDecoderSize(r.maxFrame)
	}
	if r.onDiagnostics != nil {
		cb := r.onDiagnostics
		sess.onDiagnostics = func(file string, diags []Diagnostic) {
			cb(project, file, diags)
		}
	}
	sess.start()

	go r.monitor(sess)
	return sess, nil
}

// monitor waits for the session's process to exit, then tears the session
// down and removes it from the registry. Every exit path funnels through
// here, voluntary or crash.
func (r *Registry) monitor(sess *Session) {
	var exitErr error
	if sess.cmd != nil {
		exitErr = sess.cmd.Wait()
	} else {
		<-sess.Done()
		exitErr = sess.Err()
	}

	sess.fail(ErrSessionTerminated)

	r.mu.Lock()
	// Only remove the entry if it still points at this session; a restart
	// may already have replaced it.
	if cur, exists := r.sessions[sess.Project]; exists && cur.ID == sess.ID {
		delete(r.sessions, sess.Project)
	}
	r.mu.Unlock()

	if r.onTerminate != nil {
		r.onTerminate(sess.Project, exitErr)
	}
}

// Current returns the live session for the project, or nil.
func (r *Registry) Current(project string) *Session {
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[project]
}

// Stop kills the project's server and removes the session. It is a no-op
// for unknown projects.
func (r *Registry) Stop(project string) error {
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}

	r.mu.Lock()
	sess, exists := r.sessions[project]
	if exists {
		delete(r.sessions, project)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}
	sess.kill()
	return nil
}

// Restart tears down any existing session for the project, starts a fresh
// one, and replays the configure/open handshake for every buffer that was
// open so server-side state is rebuilt from scratch.
func (r *Registry) Restart(ctx context.Context, project string) (*Session, error) {
	if abs, err := filepath.Abs(project); err == nil {
		project = abs
	}

	var snapshot map[string]string
	if old := r.Current(project); old != nil {
		snapshot = old.bufferSnapshot()
	}
	if err := r.Stop(project); err != nil {
		return nil, err
	}

	sess, err := r.Start(ctx, project)
	if err != nil {
		return nil, err
	}

	var errs []error
	for path, content := range snapshot {
		if err := sess.Configure(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("configure %s: %w", path, err))
			continue
		}
		if err := sess.Open(path, content); err != nil {
			errs = append(errs, fmt.Errorf("reopen %s: %w", path, err))
		}
	}
	return sess, errors.Join(errs...)
}

// Send routes a request through the project's session, failing fast with
// ErrNoSession when none is running. The caller decides whether to restart.
func (r *Registry) Send(project, file, command string, args any, cb RequestCallback) error {
	sess := r.Current(project)
	if sess == nil {
		return ErrNoSession
	}
	return sess.Send(file, command, args, cb)
}

// SendSync routes a blocking request through the project's session.
func (r *Registry) SendSync(ctx context.Context, project, file, command string, args any) (*Response, error) {
	sess := r.Current(project)
	if sess == nil {
		return nil, ErrNoSession
	}
	return sess.SendSync(ctx, file, command, args)
}

// EnqueueEvent registers an event callback with the project's session. It
// fails with ErrNoSession when none is running and with
// ErrSessionTerminated when the session dies between lookup and
// registration.
func (r *Registry) EnqueueEvent(project, file string, cb EventCallback) error {
	sess := r.Current(project)
	if sess == nil {
		return ErrNoSession
	}
	return sess.EnqueueEvent(file, cb)
}

// Projects returns the project roots with live sessions.
func (r *Registry) Projects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := make([]string, 0, len(r.sessions))
	for project := range r.sessions {
		projects = append(projects, project)
	}
	return projects
}

// Shutdown stops every session.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.kill()
	}
	return nil
}
