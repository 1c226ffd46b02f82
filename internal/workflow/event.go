package workflow

import "encoding/json"

// EventKind discriminates the stream event variants.
type EventKind int

const (
	// KindMetadata carries the resolved model and context flags. At most one
	// is emitted per run, always before any chunk.
	KindMetadata EventKind = iota

	// KindChunk carries one incremental fragment of generated text.
	KindChunk

	// KindError is the terminal variant: nothing follows it.
	KindError
)

// Metadata describes the resolved generation parameters for a run.
// Model is the id actually dispatched to the backend, after deprecated-model
// remapping.
type Metadata struct {
	Model        string `json:"model"`
	HasContext   bool   `json:"hasContext"`
	HasWebSearch bool   `json:"hasWebSearch"`
}

// Event is one element of the streaming execution protocol.
// Exactly one of Metadata, Chunk or Err is meaningful, selected by Kind.
type Event struct {
	Kind     EventKind
	Metadata Metadata
	Chunk    string
	Err      string
}

// MetadataEvent creates a metadata event.
func MetadataEvent(m Metadata) Event {
	return Event{Kind: KindMetadata, Metadata: m}
}

// ChunkEvent creates a content chunk event.
func ChunkEvent(text string) Event {
	return Event{Kind: KindChunk, Chunk: text}
}

// ErrorEvent creates a terminal error event.
func ErrorEvent(msg string) Event {
	return Event{Kind: KindError, Err: msg}
}

// MarshalJSON renders the newline-delimited JSON wire format: each event is
// exactly one of {"metadata":{...}}, {"chunk":"..."} or {"error":"..."}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindChunk:
		return json.Marshal(map[string]string{"chunk": e.Chunk})
	case KindError:
		return json.Marshal(map[string]string{"error": e.Err})
	default:
		return json.Marshal(map[string]Metadata{"metadata": e.Metadata})
	}
}

// Result is the outcome of a non-streaming execution.
type Result struct {
	Success  bool     `json:"success"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}
