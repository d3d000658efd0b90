// Package tsserver provides a client for the TypeScript analysis server
// (tsserver) and compatible processes speaking its length-prefixed JSON
// protocol over stdio.
//
// The package is organized around these core components:
//
//   - Decoder: incremental Content-Length frame decoding over a byte buffer
//   - Classify: routing of decoded messages into responses and events
//   - Session: one server process, its pending-request table and per-file state
//   - Registry: one session per project root, lifecycle and crash cleanup
//
// # Quick Start
//
// Start a session and issue requests:
//
//	reg := tsserver.NewRegistry()
//	sess, err := reg.Start(ctx, "/path/to/project")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Shutdown(ctx)
//
//	sess.Open("/path/to/project/main.ts", content)
//	info, err := sess.Quickinfo(ctx, "/path/to/project/main.ts", 10, 5)
//
// # Requests and Responses
//
// Outbound requests are newline-terminated JSON objects carrying a command
// name and a monotonically increasing sequence id. Responses echo the id in
// request_seq; the session resolves the matching callback and removes the
// pending entry. Unsolicited events (diagnostics and friends) are delivered
// to per-file FIFO queues registered with EnqueueEvent.
//
// # Crash Recovery
//
// When a server process exits, every pending request and queued event
// callback scoped to that project is resolved with ErrSessionTerminated so
// no caller waits forever. Restart is explicit; the registry replays the
// configure/open handshake for buffers that were open.
//
// # Thread Safety
//
// Registry and Session are safe for concurrent use.
package tsserver
