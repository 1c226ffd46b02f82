package workflow

// Role is the semantic category of a workflow node, derived from its
// declared type string. Unrecognized types map to RoleOther.
type Role int

const (
	// RoleOther is any node type the engine does not interpret.
	RoleOther Role = iota

	// RoleQuerySource is the user-query entry point of the workflow.
	RoleQuerySource

	// RoleKnowledgeBase binds a vector collection for context retrieval.
	RoleKnowledgeBase

	// RoleGenerator is the LLM engine producing the answer.
	RoleGenerator

	// RoleOutput is the terminal sink the answer is delivered to.
	RoleOutput
)

// Node type strings as declared by the workflow builder frontend.
const (
	TypeUserQuery     = "userQuery"
	TypeKnowledgeBase = "knowledgeBase"
	TypeLLMEngine     = "llmEngine"
	TypeOutput        = "output"
)

// RoleOf derives a node's role from its declared type string.
func RoleOf(nodeType string) Role {
	switch nodeType {
	case TypeUserQuery:
		return RoleQuerySource
	case TypeKnowledgeBase:
		return RoleKnowledgeBase
	case TypeLLMEngine:
		return RoleGenerator
	case TypeOutput:
		return RoleOutput
	default:
		return RoleOther
	}
}

// String returns the human-readable role name.
func (r Role) String() string {
	switch r {
	case RoleQuerySource:
		return "QuerySource"
	case RoleKnowledgeBase:
		return "KnowledgeBase"
	case RoleGenerator:
		return "Generator"
	case RoleOutput:
		return "Output"
	default:
		return "Other"
	}
}

// NodeData holds the role-specific configuration of a node. All fields are
// optional; which ones are meaningful depends on the node's role. Unknown
// keys from the wire format are dropped here; the stack store round-trips
// the raw graph JSON, so nothing is lost for persistence.
type NodeData struct {
	Label string `json:"label,omitempty"`

	// Knowledge-base node fields
	EmbeddingModel string `json:"embeddingModel,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	TopK           int    `json:"topK,omitempty"`
	ChunkSize      int    `json:"chunkSize,omitempty"`

	// Generator node fields
	Model           string   `json:"model,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       int      `json:"maxTokens,omitempty"`
	Prompt          string   `json:"prompt,omitempty"`
	EnableWebSearch bool     `json:"enableWebSearch,omitempty"`
	SerpAPIKey      string   `json:"serpApiKey,omitempty"`

	// Output node fields
	OutputType string `json:"outputType,omitempty"`
}

// Node is a single workflow component.
type Node struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Data NodeData `json:"data"`
}

// Role returns the node's semantic role.
func (n Node) Role() Role {
	return RoleOf(n.Type)
}

// Edge is a directed connection between two nodes. Source and Target are
// node ids; edges referencing unknown ids are tolerated and simply never
// contribute to adjacency.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is a read-only view of a user-authored workflow, constructed fresh
// per validate/run call and never mutated afterwards.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// First returns the first node with the given role, in declaration order.
func (g Graph) First(role Role) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Role() == role {
			return n, true
		}
	}
	return Node{}, false
}

// nodeByID builds the id -> node lookup used by the validator.
func (g Graph) nodeByID() map[string]Node {
	m := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		m[n.ID] = n
	}
	return m
}
