package tsserver

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command names in the tsserver protocol subset this client speaks.
const (
	CommandOpen        = "open"
	CommandClose       = "close"
	CommandReload      = "reload"
	CommandConfigure   = "configure"
	CommandQuickinfo   = "quickinfo"
	CommandDefinition  = "definition"
	CommandReferences  = "references"
	CommandCompletions = "completions"
	CommandGeterr      = "geterr"
)

// hostInfo identifies this client to the server.
const hostInfo = "tide"

// Configure announces the client to the server. Sent once after start and
// replayed per buffer after a restart.
func (s *Session) Configure(ctx context.Context, file string) error {
	resp, err := s.SendSync(ctx, "", CommandConfigure, ConfigureArgs{HostInfo: hostInfo, File: file})
	if err != nil {
		return err
	}
	if !resp.Success {
		return &CommandError{Command: CommandConfigure, Message: resp.Message}
	}
	return nil
}

// Quickinfo returns type and documentation info at a position.
func (s *Session) Quickinfo(ctx context.Context, file string, line, offset int) (*QuickinfoBody, error) {
	var body QuickinfoBody
	err := s.callSync(ctx, file, CommandQuickinfo, FileLocationArgs{File: file, Line: line, Offset: offset}, &body)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

// Definition returns the definition locations for the symbol at a position.
func (s *Session) Definition(ctx context.Context, file string, line, offset int) ([]FileSpan, error) {
	var spans []FileSpan
	err := s.callSync(ctx, file, CommandDefinition, FileLocationArgs{File: file, Line: line, Offset: offset}, &spans)
	if err != nil {
		return nil, err
	}
	return spans, nil
}

// References returns all usages of the symbol at a position.
func (s *Session) References(ctx context.Context, file string, line, offset int) (*ReferencesBody, error) {
	var body ReferencesBody
	err := s.callSync(ctx, file, CommandReferences, FileLocationArgs{File: file, Line: line, Offset: offset}, &body)
	if err != nil {
		return nil, err
	}
	return &body, nil
}

// Completions returns completion candidates at a position.
func (s *Session) Completions(ctx context.Context, file string, line, offset int, prefix string) ([]CompletionEntry, error) {
	args := CompletionsArgs{
		FileLocationArgs: FileLocationArgs{File: file, Line: line, Offset: offset},
		Prefix:           prefix,
	}
	var entries []CompletionEntry
	if err := s.callSync(ctx, file, CommandCompletions, args, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// callSync issues a blocking request and decodes the response body into out.
// A success=false response surfaces as a CommandError.
func (s *Session) callSync(ctx context.Context, file, command string, args, out any) error {
	resp, err := s.SendSync(ctx, file, command, args)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &CommandError{Command: command, Message: resp.Message}
	}
	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("unmarshal %s body: %w", command, err)
		}
	}
	return nil
}
