package workflow

import (
	"encoding/json"
	"testing"
)

func TestEventMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "metadata",
			event: MetadataEvent(Metadata{Model: "anthropic/claude-3.5-sonnet", HasContext: true}),
			want:  `{"metadata":{"model":"anthropic/claude-3.5-sonnet","hasContext":true,"hasWebSearch":false}}`,
		},
		{
			name:  "chunk",
			event: ChunkEvent("Hello"),
			want:  `{"chunk":"Hello"}`,
		},
		{
			name:  "empty chunk still serializes",
			event: ChunkEvent(""),
			want:  `{"chunk":""}`,
		},
		{
			name:  "error",
			event: ErrorEvent("Error generating stream: timeout"),
			want:  `{"error":"Error generating stream: timeout"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}
