package tsserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestEventArity_Geterr(t *testing.T) {
	// geterr answers with a syntaxDiag event followed by a semanticDiag
	// event; the declared arity keeps registrations and events paired.
	if got := eventArity[CommandGeterr]; got != 2 {
		t.Fatalf("eventArity[geterr] = %d, want 2", got)
	}
}

func TestSession_CheckErrorsCombinesBothPhases(t *testing.T) {
	sess, fs := newTestSession(t, 2*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := fs.next()
		if req.Command != CommandGeterr {
			t.Errorf("command = %q, want geterr", req.Command)
		}
		fs.sendEvent("syntaxDiag", "a.ts",
			`,"diagnostics":[{"start":{"line":1,"offset":1},"end":{"line":1,"offset":4},"text":"missing semicolon","code":1005,"category":"error"}]`)
		fs.sendEvent("semanticDiag", "a.ts",
			`,"diagnostics":[{"start":{"line":2,"offset":5},"end":{"line":2,"offset":8},"text":"cannot find name 'y'","code":2304,"category":"error"}]`)
	}()

	diags, err := sess.CheckErrors(context.Background(), "a.ts", 0)
	<-done
	if err != nil {
		t.Fatalf("CheckErrors() error = %v", err)
	}

	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2 (syntactic + semantic)", len(diags))
	}
	// Server emission order is preserved: syntactic first.
	if diags[0].Text != "missing semicolon" {
		t.Errorf("first diagnostic = %q, want syntactic one", diags[0].Text)
	}
	if diags[1].Code != 2304 {
		t.Errorf("second diagnostic code = %d, want 2304", diags[1].Code)
	}

	if n := sess.queuedCount("a.ts"); n != 0 {
		t.Errorf("%d event callbacks still queued after completion", n)
	}
}

func TestSession_CheckErrorsEmptyPhases(t *testing.T) {
	sess, fs := newTestSession(t, 2*time.Second)

	go func() {
		fs.next()
		fs.sendEvent("syntaxDiag", "clean.ts", `,"diagnostics":[]`)
		fs.sendEvent("semanticDiag", "clean.ts", `,"diagnostics":[]`)
	}()

	diags, err := sess.CheckErrors(context.Background(), "clean.ts", 0)
	if err != nil {
		t.Fatalf("CheckErrors() error = %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("got %d diagnostics for a clean file", len(diags))
	}
}

func TestSession_CheckErrorsSessionCrash(t *testing.T) {
	sess, fs := newTestSession(t, 5*time.Second)

	go func() {
		fs.next()
		// Only the syntactic phase arrives before the crash.
		fs.sendEvent("syntaxDiag", "a.ts", `,"diagnostics":[]`)
		fs.close()
	}()

	_, err := sess.CheckErrors(context.Background(), "a.ts", 0)
	if !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("CheckErrors() = %v, want ErrSessionTerminated", err)
	}
}

func TestSession_CheckErrorsAsyncSendFailureRollsBackQueue(t *testing.T) {
	sess, fs := newTestSession(t, time.Second)

	fs.close()
	<-sess.Done()

	err := sess.CheckErrorsAsync("a.ts", 0, func(diags []Diagnostic, err error) {
		t.Error("handler must not fire when the request never went out")
	})
	if !errors.Is(err, ErrSessionTerminated) {
		t.Fatalf("CheckErrorsAsync() = %v, want ErrSessionTerminated", err)
	}
	if n := sess.queuedCount("a.ts"); n != 0 {
		t.Errorf("%d callbacks left queued after failed send", n)
	}
}

func TestSession_DiagnosticsHookObservesEvents(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	t.Cleanup(func() {
		inW.Close()
		inR.Close()
		outW.Close()
		outR.Close()
	})

	// Drain client writes so they never block.
	go io.Copy(io.Discard, inR)

	observed := make(chan []Diagnostic, 2)
	sess := newSession("/proj", inW, outR, nil, time.Second)
	sess.onDiagnostics = func(file string, diags []Diagnostic) {
		if file == "a.ts" {
			observed <- diags
		}
	}
	sess.start()

	body := `{"type":"event","event":"syntaxDiag","body":{"file":"a.ts","diagnostics":[{"start":{"line":1,"offset":1},"end":{"line":1,"offset":2},"text":"oops","category":"error"}]}}`
	frame := fmt.Sprintf("Content-Length: %d\r\n\r\n%s\n", len(body), body)
	if _, err := io.WriteString(outW, frame); err != nil {
		t.Fatal(err)
	}

	select {
	case diags := <-observed:
		if len(diags) != 1 || diags[0].Text != "oops" {
			t.Errorf("hook observed %+v", diags)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("diagnostics hook never fired")
	}
}
