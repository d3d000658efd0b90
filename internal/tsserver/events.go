package tsserver

import "encoding/json"

// EnqueueEvent registers a callback for the next event scoped to the file.
// Callbacks are strictly FIFO per file: N registrations consume the next N
// events for that file in registration order. A record is created for files
// without an open buffer so interest can be registered before content is
// announced. After teardown it fails with ErrSessionTerminated: teardown
// drains the queues exactly once, so a callback appended afterwards would
// never be invoked.
func (s *Session) EnqueueEvent(file string, cb EventCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Checked under s.mu so the append cannot race past the drain in fail.
	if s.State() == SessionStateTerminated {
		return ErrSessionTerminated
	}

	buf, exists := s.buffers[file]
	if !exists {
		buf = &Buffer{Path: file}
		s.buffers[file] = buf
	}
	buf.queue = append(buf.queue, cb)
	return nil
}

// dispatchEvent resolves the event's file and pops exactly one queued
// callback for it. Events with no waiting callback, or with no file
// association at all, are dropped.
func (s *Session) dispatchEvent(evt *Event) {
	file := evt.File()
	if file == "" {
		return
	}

	// The diagnostics hook observes every push, including ones a queued
	// callback is about to consume.
	if s.onDiagnostics != nil && (evt.Event == EventSyntaxDiag || evt.Event == EventSemanticDiag) {
		var body diagEventBody
		if err := json.Unmarshal(evt.Body, &body); err == nil {
			s.onDiagnostics(file, body.Diagnostics)
		}
	}

	s.mu.Lock()
	buf, exists := s.buffers[file]
	if !exists || len(buf.queue) == 0 {
		s.mu.Unlock()
		return
	}
	cb := buf.queue[0]
	buf.queue = buf.queue[1:]
	s.mu.Unlock()

	cb(evt, nil)
}

// dropQueued removes up to n callbacks from the back of the file's queue.
// Used to roll back registrations whose triggering request failed to send.
func (s *Session) dropQueued(file string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, exists := s.buffers[file]
	if !exists {
		return
	}
	if n > len(buf.queue) {
		n = len(buf.queue)
	}
	buf.queue = buf.queue[:len(buf.queue)-n]
}

// queuedCount reports the number of callbacks waiting on events for a file.
func (s *Session) queuedCount(file string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if buf, exists := s.buffers[file]; exists {
		return len(buf.queue)
	}
	return 0
}
