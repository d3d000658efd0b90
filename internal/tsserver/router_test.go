package tsserver

import (
	"encoding/json"
	"testing"
)

func TestClassify_Response(t *testing.T) {
	raw := json.RawMessage(`{"type":"response","request_seq":"7","command":"quickinfo","success":true,"body":{"kind":"var"}}`)

	msg := Classify(raw)
	if msg.Kind != KindResponse {
		t.Fatalf("Kind = %v, want response", msg.Kind)
	}
	if msg.Response == nil || msg.Event != nil {
		t.Fatal("response variant not populated exclusively")
	}
	if msg.Response.RequestSeq != "7" {
		t.Errorf("RequestSeq = %q, want 7", msg.Response.RequestSeq)
	}
	if !msg.Response.Success {
		t.Error("Success = false, want true")
	}
}

func TestClassify_Event(t *testing.T) {
	raw := json.RawMessage(`{"type":"event","event":"semanticDiag","body":{"file":"src/a.ts","diagnostics":[]}}`)

	msg := Classify(raw)
	if msg.Kind != KindEvent {
		t.Fatalf("Kind = %v, want event", msg.Kind)
	}
	if msg.Event == nil || msg.Response != nil {
		t.Fatal("event variant not populated exclusively")
	}
	if msg.Event.Event != "semanticDiag" {
		t.Errorf("Event = %q, want semanticDiag", msg.Event.Event)
	}
	if got := msg.Event.File(); got != "src/a.ts" {
		t.Errorf("File() = %q, want src/a.ts", got)
	}
}

func TestClassify_UnknownTypeDropped(t *testing.T) {
	cases := []string{
		`{"type":"telemetry","payload":{}}`,
		`{"no_type_at_all":true}`,
		`{"type":42}`,
		`[]`,
	}
	for _, raw := range cases {
		msg := Classify(json.RawMessage(raw))
		if msg.Kind != KindUnknown {
			t.Errorf("Classify(%s).Kind = %v, want unknown", raw, msg.Kind)
		}
		if msg.Response != nil || msg.Event != nil {
			t.Errorf("Classify(%s) populated a variant for unknown kind", raw)
		}
	}
}

func TestEvent_FileMissing(t *testing.T) {
	evt := &Event{Type: "event", Event: "typingsInstallerPid", Body: json.RawMessage(`{"pid":123}`)}
	if got := evt.File(); got != "" {
		t.Errorf("File() = %q, want empty", got)
	}
}

func TestKind_String(t *testing.T) {
	if KindResponse.String() != "response" || KindEvent.String() != "event" || KindUnknown.String() != "unknown" {
		t.Error("Kind.String() mismatch")
	}
}
