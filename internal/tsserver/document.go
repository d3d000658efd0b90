package tsserver

import (
	"fmt"
	"os"
)

// Buffer is the per-file state a session tracks for an open file: the
// editor-side content, whether it has diverged from what the server has
// seen, and the FIFO of callbacks awaiting events scoped to the file.
// Callers hold only the file path; the session owns the record.
type Buffer struct {
	Path    string
	Content string
	Dirty   bool

	// tmpFile receives the buffer content on reload syncs. Created lazily,
	// reused for the buffer's lifetime, removed on close.
	tmpFile string

	// queue holds event callbacks in registration order. Pushed at the back,
	// popped from the front, never reordered.
	queue []EventCallback
}

// Open registers a buffer for the file and announces it to the server. The
// open command produces no direct response; diagnostics and other events for
// the file follow asynchronously.
func (s *Session) Open(file, content string) error {
	s.mu.Lock()
	if _, exists := s.buffers[file]; exists {
		s.mu.Unlock()
		return ErrBufferAlreadyOpen
	}
	s.buffers[file] = &Buffer{Path: file, Content: content}
	s.mu.Unlock()

	return s.Send("", CommandOpen, OpenArgs{File: file, FileContent: content}, nil)
}

// Close announces the close to the server and drops the buffer record.
// Callbacks still queued for the file resolve with ErrBufferNotOpen.
func (s *Session) Close(file string) error {
	s.mu.Lock()
	buf, exists := s.buffers[file]
	if !exists {
		s.mu.Unlock()
		return ErrBufferNotOpen
	}
	delete(s.buffers, file)
	queued := buf.queue
	tmp := buf.tmpFile
	s.mu.Unlock()

	for _, cb := range queued {
		cb(nil, ErrBufferNotOpen)
	}
	if tmp != "" {
		os.Remove(tmp)
	}

	return s.Send("", CommandClose, FileArgs{File: file}, nil)
}

// Update replaces the buffer content and marks it dirty. The new content is
// not transmitted immediately; it is flushed with a reload right before the
// next request that names the file, so the server always sees the latest
// content before acting on it.
func (s *Session) Update(file, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, exists := s.buffers[file]
	if !exists {
		return ErrBufferNotOpen
	}
	buf.Content = content
	buf.Dirty = true
	return nil
}

// Reload force-flushes the buffer content to the server regardless of the
// dirty flag.
func (s *Session) Reload(file string) error {
	s.mu.Lock()
	buf, exists := s.buffers[file]
	if exists {
		buf.Dirty = true
	}
	s.mu.Unlock()

	if !exists {
		return ErrBufferNotOpen
	}
	return s.syncBuffer(file)
}

// OpenFiles returns the paths of all open buffers.
func (s *Session) OpenFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]string, 0, len(s.buffers))
	for path := range s.buffers {
		files = append(files, path)
	}
	return files
}

// bufferSnapshot captures path to content for every open buffer. Used to
// replay the open handshake after a restart.
func (s *Session) bufferSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(map[string]string, len(s.buffers))
	for path, buf := range s.buffers {
		snap[path] = buf.Content
	}
	return snap
}

// syncBuffer writes dirty content to the buffer's temp file and sends a
// reload so the server reads the current state. No-op for clean or unknown
// buffers. The reload is written ahead of whatever request triggered the
// sync, preserving order on the wire.
func (s *Session) syncBuffer(file string) error {
	s.mu.Lock()
	buf, exists := s.buffers[file]
	if !exists || !buf.Dirty {
		s.mu.Unlock()
		return nil
	}
	content := buf.Content
	tmp := buf.tmpFile
	buf.Dirty = false
	s.mu.Unlock()

	if tmp == "" {
		f, err := os.CreateTemp("", "tide-buffer-*.ts")
		if err != nil {
			s.markDirty(file)
			return fmt.Errorf("create sync file: %w", err)
		}
		tmp = f.Name()
		f.Close()

		s.mu.Lock()
		if cur, ok := s.buffers[file]; ok {
			cur.tmpFile = tmp
		}
		s.mu.Unlock()
	}

	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		s.markDirty(file)
		return fmt.Errorf("write sync file: %w", err)
	}

	if err := s.Send("", CommandReload, ReloadArgs{File: file, TmpFile: tmp}, nil); err != nil {
		s.markDirty(file)
		return err
	}
	return nil
}

// markDirty restores the dirty flag after a failed sync.
func (s *Session) markDirty(file string) {
	s.mu.Lock()
	if buf, ok := s.buffers[file]; ok {
		buf.Dirty = true
	}
	s.mu.Unlock()
}

// removeTempFiles deletes all buffer sync files. Called on teardown.
func (s *Session) removeTempFiles() {
	s.mu.Lock()
	var tmps []string
	for _, buf := range s.buffers {
		if buf.tmpFile != "" {
			tmps = append(tmps, buf.tmpFile)
		}
	}
	s.mu.Unlock()

	for _, tmp := range tmps {
		os.Remove(tmp)
	}
}
