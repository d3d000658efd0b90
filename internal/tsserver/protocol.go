package tsserver

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Request is an outbound command. It is serialized as a single JSON object
// terminated by a newline; tsserver does not expect Content-Length framing
// on its input.
type Request struct {
	Command   string `json:"command"`
	Seq       string `json:"seq"`
	Arguments any    `json:"arguments,omitempty"`
}

// Response answers a specific request, echoing its sequence id.
type Response struct {
	Type       string          `json:"type"`
	RequestSeq string          `json:"request_seq"`
	Command    string          `json:"command"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Event is an unsolicited server message scoped to a file.
type Event struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// File returns the file path the event is scoped to, or "" when the event
// carries no file association.
func (e *Event) File() string {
	return gjson.GetBytes(e.Body, "file").String()
}

// Location is a 1-based line/offset position within a file.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// FileSpan is a range within a named file.
type FileSpan struct {
	File  string   `json:"file"`
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// --- Request arguments (tsserver protocol subset) ---

// FileArgs identifies a file for commands that need nothing else.
type FileArgs struct {
	File string `json:"file"`
}

// FileLocationArgs identifies a position within a file.
type FileLocationArgs struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
}

// OpenArgs are the arguments for the open command.
type OpenArgs struct {
	File        string `json:"file"`
	FileContent string `json:"fileContent,omitempty"`
}

// ReloadArgs are the arguments for the reload command. TmpFile holds the
// buffer content to be read in place of the on-disk file.
type ReloadArgs struct {
	File    string `json:"file"`
	TmpFile string `json:"tmpfile"`
}

// ConfigureArgs are the arguments for the configure command.
type ConfigureArgs struct {
	HostInfo string `json:"hostInfo,omitempty"`
	File     string `json:"file,omitempty"`
}

// CompletionsArgs are the arguments for the completions command.
type CompletionsArgs struct {
	FileLocationArgs
	Prefix string `json:"prefix,omitempty"`
}

// GeterrArgs are the arguments for the geterr command. Delay is in
// milliseconds and lets the server coalesce rapid-fire checks.
type GeterrArgs struct {
	Files []string `json:"files"`
	Delay int      `json:"delay"`
}

// --- Response and event bodies ---

// QuickinfoBody is the body of a quickinfo response.
type QuickinfoBody struct {
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers,omitempty"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	DisplayString string   `json:"displayString"`
	Documentation string   `json:"documentation,omitempty"`
}

// CompletionEntry is one completion candidate.
type CompletionEntry struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	KindModifiers string `json:"kindModifiers,omitempty"`
	SortText      string `json:"sortText,omitempty"`
}

// ReferenceEntry is one usage of a symbol.
type ReferenceEntry struct {
	FileSpan
	LineText      string `json:"lineText,omitempty"`
	IsWriteAccess bool   `json:"isWriteAccess"`
	IsDefinition  bool   `json:"isDefinition"`
}

// ReferencesBody is the body of a references response.
type ReferencesBody struct {
	Refs                []ReferenceEntry `json:"refs"`
	SymbolName          string           `json:"symbolName"`
	SymbolStartOffset   int              `json:"symbolStartOffset"`
	SymbolDisplayString string           `json:"symbolDisplayString,omitempty"`
}

// diagEventBody is the body of syntaxDiag and semanticDiag events.
type diagEventBody struct {
	File        string       `json:"file"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}
