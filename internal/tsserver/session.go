package tsserver

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionState indicates where a session is in its lifecycle.
type SessionState int

const (
	SessionStateStarting SessionState = iota
	SessionStateRunning
	SessionStateTerminated
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case SessionStateStarting:
		return "starting"
	case SessionStateRunning:
		return "running"
	case SessionStateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RequestCallback receives the response correlated with a request, or an
// error when none will ever arrive. A response with Success=false is not an
// error here; it is forwarded as-is and the callback decides how to surface
// it.
type RequestCallback func(resp *Response, err error)

// EventCallback receives the next event scoped to a file, or an error when
// the session dies before the event arrives.
type EventCallback func(evt *Event, err error)

// pendingEntry tracks one in-flight request awaiting its response.
type pendingEntry struct {
	file string
	cb   RequestCallback
}

// Session is the live connection state for one project's analysis server:
// the process, the write channel, the decode buffer, the pending-request
// table, and the per-file buffer records. Sessions are created by a
// Registry and torn down when the process exits or is killed.
type Session struct {
	// ID uniquely identifies this session instance. A restarted project gets
	// a fresh ID, which distinguishes stale handles from the live session.
	ID string

	// Project is the project root the server was started in.
	Project string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	dec     *Decoder
	writeMu sync.Mutex

	seq     atomic.Int64
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEntry
	buffers map[string]*Buffer

	// onDiagnostics, when set, observes every inbound diagnostics event.
	// Assigned before start and never mutated afterwards.
	onDiagnostics func(file string, diags []Diagnostic)

	state    atomic.Int32
	started  time.Time
	done     chan struct{}
	failOnce sync.Once
	exitErr  error
}

// newSession creates a session over the given pipes. cmd may be nil when the
// session is driven by something other than a child process, as in tests.
func newSession(project string, stdin io.WriteCloser, stdout io.ReadCloser, cmd *exec.Cmd, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	s := &Session{
		ID:      uuid.NewString(),
		Project: project,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  stdout,
		dec:     NewDecoder(),
		timeout: timeout,
		pending: make(map[string]*pendingEntry),
		buffers: make(map[string]*Buffer),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(SessionStateStarting))
	return s
}

// start marks the session running and begins consuming server output.
func (s *Session) start() {
	s.state.Store(int32(SessionStateRunning))
	go s.readLoop()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Done returns a channel closed when the session terminates.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error the session terminated with, or nil while running.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.exitErr
	default:
		return nil
	}
}

// Send transmits a request. file names the originating context; when that
// buffer has unsynced modifications they are flushed first so the server
// sees current content before acting. When cb is non-nil it is recorded
// under the new sequence id and fires exactly once: with the matching
// response, or with ErrSessionTerminated if the session dies first.
func (s *Session) Send(file, command string, args any, cb RequestCallback) error {
	_, err := s.send(file, command, args, cb)
	return err
}

// send transmits a request and returns the sequence id it went out under so
// synchronous callers can abandon the pending entry.
func (s *Session) send(file, command string, args any, cb RequestCallback) (string, error) {
	if s.State() == SessionStateTerminated {
		return "", ErrSessionTerminated
	}

	if file != "" {
		if err := s.syncBuffer(file); err != nil {
			return "", err
		}
	}

	seq := strconv.FormatInt(s.seq.Add(1), 10)
	req := &Request{Command: command, Seq: seq, Arguments: args}

	if cb != nil {
		s.mu.Lock()
		s.pending[seq] = &pendingEntry{file: file, cb: cb}
		s.mu.Unlock()
	}

	if err := s.write(req); err != nil {
		if cb != nil {
			s.discardPending(seq)
		}
		return "", err
	}
	return seq, nil
}

// discardPending removes one pending entry without invoking its callback.
func (s *Session) discardPending(seq string) {
	s.mu.Lock()
	delete(s.pending, seq)
	s.mu.Unlock()
}

// SendSync emulates a blocking call on top of the asynchronous transport. It
// returns the response within the session's request timeout or fails with a
// TimeoutError naming the command. A stale response can never surface: the
// capture channel is private to this call's sequence id.
func (s *Session) SendSync(ctx context.Context, file, command string, args any) (*Response, error) {
	type result struct {
		resp *Response
		err  error
	}
	ch := make(chan result, 1)

	seq, err := s.send(file, command, args, func(resp *Response, err error) {
		ch <- result{resp: resp, err: err}
	})
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	// On early exit the pending entry is discarded so abandoned requests do
	// not accumulate against an unresponsive server. A resolution racing the
	// discard lands in the buffered channel and is dropped with it.
	select {
	case <-ctx.Done():
		s.discardPending(seq)
		return nil, ctx.Err()
	case <-timer.C:
		s.discardPending(seq)
		return nil, &TimeoutError{Command: command, Elapsed: s.timeout}
	case r := <-ch:
		return r.resp, r.err
	}
}

// write serializes and transmits one request. Requests from concurrent
// callers are written whole, never interleaved.
func (s *Session) write(req *Request) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeRequest(s.stdin, req)
}

// readLoop accumulates stdout chunks into the decode buffer and dispatches
// every complete frame, in framing order, until the stream ends or a fatal
// protocol error occurs.
func (s *Session) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.dec.Feed(buf[:n])
			msgs, derr := s.dec.Drain()
			for _, raw := range msgs {
				s.dispatch(raw)
			}
			if derr != nil {
				s.fail(derr)
				return
			}
		}
		if err != nil {
			s.fail(ErrSessionTerminated)
			return
		}
	}
}

// dispatch classifies one decoded message and routes it. Unknown kinds are
// dropped.
func (s *Session) dispatch(raw []byte) {
	msg := Classify(raw)
	switch msg.Kind {
	case KindResponse:
		s.resolve(msg.Response)
	case KindEvent:
		s.dispatchEvent(msg.Event)
	}
}

// resolve delivers a response to its pending callback and removes the
// entry. Responses for unknown ids are discarded silently; the entry may
// already have been resolved, or never existed.
func (s *Session) resolve(resp *Response) {
	s.mu.Lock()
	entry, ok := s.pending[resp.RequestSeq]
	if ok {
		delete(s.pending, resp.RequestSeq)
	}
	s.mu.Unlock()

	if ok {
		entry.cb(resp, nil)
	}
}

// fail terminates the session exactly once: every pending request and every
// queued event callback resolves with ErrSessionTerminated so no caller,
// synchronous or asynchronous, waits forever.
func (s *Session) fail(err error) {
	s.failOnce.Do(func() {
		s.state.Store(int32(SessionStateTerminated))
		s.exitErr = err

		s.mu.Lock()
		entries := make([]*pendingEntry, 0, len(s.pending))
		for _, e := range s.pending {
			entries = append(entries, e)
		}
		s.pending = make(map[string]*pendingEntry)

		var queued []EventCallback
		for _, buf := range s.buffers {
			queued = append(queued, buf.queue...)
			buf.queue = nil
		}
		s.mu.Unlock()

		for _, e := range entries {
			e.cb(nil, ErrSessionTerminated)
		}
		for _, cb := range queued {
			cb(nil, ErrSessionTerminated)
		}

		s.removeTempFiles()
		close(s.done)
	})
}

// kill tears the process down and fails the session. Safe to call multiple
// times and on sessions without a process.
func (s *Session) kill() {
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.fail(ErrSessionTerminated)
}

// pendingCount reports the number of in-flight requests.
func (s *Session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Info describes a session for status surfaces.
type Info struct {
	ID        string
	Project   string
	State     SessionState
	OpenFiles []string
	Started   time.Time
}

// Info returns a point-in-time description of the session.
func (s *Session) Info() Info {
	return Info{
		ID:        s.ID,
		Project:   s.Project,
		State:     s.State(),
		OpenFiles: s.OpenFiles(),
		Started:   s.started,
	}
}
