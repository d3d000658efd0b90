package tsserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Diagnostic is one reported problem within a file.
type Diagnostic struct {
	Start    Location `json:"start"`
	End      Location `json:"end"`
	Text     string   `json:"text"`
	Code     int      `json:"code,omitempty"`
	Category string   `json:"category,omitempty"`
}

// Event names carrying diagnostics.
const (
	EventSyntaxDiag   = "syntaxDiag"
	EventSemanticDiag = "semanticDiag"
)

// eventArity declares how many follow-up events each request kind produces.
// geterr answers through events rather than a response: a syntaxDiag event
// followed by a semanticDiag event per checked file. The arity is declared
// here rather than hardcoded at call sites so the coupling between request
// and event count stays in one place.
var eventArity = map[string]int{
	CommandGeterr: 2,
}

// diagAggregator combines the syntactic and semantic diagnostic events for
// one geterr request into a single result.
type diagAggregator struct {
	mu        sync.Mutex
	remaining int
	diags     []Diagnostic
	done      bool
	handler   func([]Diagnostic, error)
}

// collect consumes one diagnostic event. The handler fires exactly once:
// with the combined result after the last event, or with the first error.
func (a *diagAggregator) collect(evt *Event, err error) {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.done = true
		handler := a.handler
		a.mu.Unlock()
		handler(nil, err)
		return
	}

	var body diagEventBody
	if jerr := json.Unmarshal(evt.Body, &body); jerr == nil {
		a.diags = append(a.diags, body.Diagnostics...)
	}

	a.remaining--
	if a.remaining > 0 {
		a.mu.Unlock()
		return
	}
	a.done = true
	diags := a.diags
	handler := a.handler
	a.mu.Unlock()
	handler(diags, nil)
}

// CheckErrorsAsync requests diagnostics for the file and invokes handler
// once with the combined syntactic and semantic results, in server emission
// order. delay is the server-side coalescing delay in milliseconds.
func (s *Session) CheckErrorsAsync(file string, delay int, handler func([]Diagnostic, error)) error {
	arity := eventArity[CommandGeterr]
	agg := &diagAggregator{remaining: arity, handler: handler}

	// Interest is registered before the request goes out so events cannot
	// race past an empty queue.
	for i := 0; i < arity; i++ {
		if err := s.EnqueueEvent(file, agg.collect); err != nil {
			s.dropQueued(file, i)
			return err
		}
	}

	err := s.Send(file, CommandGeterr, GeterrArgs{Files: []string{file}, Delay: delay}, nil)
	if err != nil {
		s.dropQueued(file, arity)
		return err
	}
	return nil
}

// CheckErrors is the blocking form of CheckErrorsAsync, bounded by the
// session's request timeout on top of the requested coalescing delay.
func (s *Session) CheckErrors(ctx context.Context, file string, delay int) ([]Diagnostic, error) {
	type result struct {
		diags []Diagnostic
		err   error
	}
	ch := make(chan result, 1)

	err := s.CheckErrorsAsync(file, delay, func(diags []Diagnostic, err error) {
		ch <- result{diags: diags, err: err}
	})
	if err != nil {
		return nil, err
	}

	budget := s.timeout + time.Duration(delay)*time.Millisecond
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &TimeoutError{Command: CommandGeterr, Elapsed: budget}
	case r := <-ch:
		return r.diags, r.err
	}
}
