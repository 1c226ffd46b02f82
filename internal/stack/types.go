// Package stack persists workflow stacks, their uploaded documents and chat
// history in PostgreSQL.
package stack

import (
	"encoding/json"
	"time"
)

// DefaultName is applied when a stack is created without a name.
const DefaultName = "Untitled Stack"

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stack is a saved workflow: a named graph plus optional free-form config.
// Nodes, Edges and Config are stored as raw JSON so builder-side fields the
// engine does not interpret survive round trips.
type Stack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	Config      json.RawMessage `json:"config,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Document records an uploaded file and the vector collection its chunks
// were embedded into.
type Document struct {
	ID             string    `json:"id"`
	StackID        string    `json:"stackId"`
	Filename       string    `json:"filename"`
	FilePath       string    `json:"filePath"`
	FileType       string    `json:"fileType"`
	FileSize       string    `json:"fileSize"`
	CollectionName string    `json:"collectionName"`
	ChunkCount     int       `json:"chunkCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Message is one chat-history entry.
type Message struct {
	ID        string    `json:"id"`
	StackID   string    `json:"stackId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateStackParams carries the fields accepted when creating a stack.
type CreateStackParams struct {
	Name        string
	Description string
	Nodes       json.RawMessage
	Edges       json.RawMessage
	Config      json.RawMessage
}

// UpdateStackParams carries a partial stack update. Nil fields are left
// unchanged.
type UpdateStackParams struct {
	Name        *string
	Description *string
	Nodes       json.RawMessage
	Edges       json.RawMessage
	Config      json.RawMessage
}
