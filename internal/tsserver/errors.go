package tsserver

import (
	"errors"
	"fmt"
	"time"
)

// Standard errors returned by the tsserver client.
var (
	// ErrNoSession indicates no session is running for the project.
	ErrNoSession = errors.New("tsserver not running")

	// ErrAlreadyStarted indicates a session for the project already exists.
	ErrAlreadyStarted = errors.New("tsserver session already started")

	// ErrSessionTerminated indicates the server process exited while work
	// was outstanding. Pending callbacks receive this error.
	ErrSessionTerminated = errors.New("tsserver session terminated")

	// ErrBufferNotOpen indicates the file has no open buffer in the session.
	ErrBufferNotOpen = errors.New("buffer not open")

	// ErrBufferAlreadyOpen indicates the file already has an open buffer.
	ErrBufferAlreadyOpen = errors.New("buffer already open")

	// ErrFrameTooLarge indicates a frame exceeded the decoder's size limit.
	ErrFrameTooLarge = errors.New("frame exceeds maximum content length")
)

// TimeoutError reports that a synchronous request exceeded its wait budget.
type TimeoutError struct {
	Command string
	Elapsed time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Command, e.Elapsed)
}

// CommandError reports a response with success=false. It is a protocol-level
// failure, not a transport error: the server handled the request and refused.
type CommandError struct {
	Command string
	Message string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("command %q failed", e.Command)
	}
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Message)
}

// ProtocolError reports a frame whose body could not be parsed as JSON.
// It is fatal for the session that produced it.
type ProtocolError struct {
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
