package workflow

import (
	"reflect"
	"testing"
)

func node(id, nodeType string) Node {
	return Node{ID: id, Type: nodeType}
}

func edge(id, source, target string) Edge {
	return Edge{ID: id, Source: source, Target: target}
}

// completeGraph is the minimal valid pipeline: query -> engine -> output.
func completeGraph() Graph {
	return Graph{
		Nodes: []Node{
			node("q1", TypeUserQuery),
			node("g1", TypeLLMEngine),
			node("o1", TypeOutput),
		},
		Edges: []Edge{
			edge("e1", "q1", "g1"),
			edge("e2", "g1", "o1"),
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		graph      Graph
		wantValid  bool
		wantErrors []string
	}{
		{
			name:       "complete pipeline",
			graph:      completeGraph(),
			wantValid:  true,
			wantErrors: []string{},
		},
		{
			name: "with knowledge base",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("kb1", TypeKnowledgeBase),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{
					edge("e1", "q1", "kb1"),
					edge("e2", "kb1", "g1"),
					edge("e3", "g1", "o1"),
				},
			},
			wantValid:  true,
			wantErrors: []string{},
		},
		{
			name:       "empty graph reports all missing components",
			graph:      Graph{},
			wantValid:  false,
			wantErrors: []string{errMissingQuerySource, errMissingGenerator, errMissingOutput},
		},
		{
			name: "missing query source",
			graph: Graph{
				Nodes: []Node{
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{edge("e1", "g1", "o1")},
			},
			wantValid:  false,
			wantErrors: []string{errMissingQuerySource, errGeneratorNoInput},
		},
		{
			name: "missing output",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("g1", TypeLLMEngine),
				},
				Edges: []Edge{edge("e1", "q1", "g1")},
			},
			wantValid:  false,
			wantErrors: []string{errMissingOutput, errGeneratorNoOutput},
		},
		{
			name: "engine without input connection",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{edge("e1", "g1", "o1")},
			},
			wantValid:  false,
			wantErrors: []string{errGeneratorNoInput},
		},
		{
			name: "engine not connected to output",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{edge("e1", "q1", "g1")},
			},
			wantValid:  false,
			wantErrors: []string{errGeneratorNoOutput},
		},
		{
			name: "engine connected to non-output target only",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("kb1", TypeKnowledgeBase),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{
					edge("e1", "q1", "g1"),
					edge("e2", "g1", "kb1"),
				},
			},
			wantValid:  false,
			wantErrors: []string{errGeneratorNoOutput},
		},
		{
			name: "dangling edges are ignored",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{
					edge("e1", "q1", "g1"),
					edge("e2", "g1", "o1"),
					edge("e3", "ghost", "g1"),
					edge("e4", "g1", "ghost"),
				},
			},
			wantValid:  true,
			wantErrors: []string{},
		},
		{
			name: "dangling edge does not satisfy input rule",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{
					edge("e1", "ghost", "g1"),
					edge("e2", "g1", "o1"),
				},
			},
			wantValid:  false,
			wantErrors: []string{errGeneratorNoInput},
		},
		{
			name: "unknown node types are inert",
			graph: Graph{
				Nodes: []Node{
					node("q1", TypeUserQuery),
					node("x1", "annotation"),
					node("g1", TypeLLMEngine),
					node("o1", TypeOutput),
				},
				Edges: []Edge{
					edge("e1", "q1", "g1"),
					edge("e2", "g1", "o1"),
				},
			},
			wantValid:  true,
			wantErrors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.graph)

			if got.Valid != tt.wantValid {
				t.Fatalf("Validate() valid = %v, want %v (errors: %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if !reflect.DeepEqual(got.Errors, tt.wantErrors) {
				t.Errorf("Validate() errors = %v, want %v", got.Errors, tt.wantErrors)
			}

			wantMsg := msgValid
			if !tt.wantValid {
				wantMsg = msgInvalid
			}
			if got.Message != wantMsg {
				t.Errorf("Validate() message = %q, want %q", got.Message, wantMsg)
			}
		})
	}
}

func TestValidateValidResultHasEmptyErrorSlice(t *testing.T) {
	// The wire format requires "errors": [] rather than null.
	got := Validate(completeGraph())
	if got.Errors == nil {
		t.Fatal("Validate() returned nil Errors for a valid graph, want empty slice")
	}
}

func TestRoleOf(t *testing.T) {
	tests := []struct {
		nodeType string
		want     Role
	}{
		{TypeUserQuery, RoleQuerySource},
		{TypeKnowledgeBase, RoleKnowledgeBase},
		{TypeLLMEngine, RoleGenerator},
		{TypeOutput, RoleOutput},
		{"annotation", RoleOther},
		{"", RoleOther},
	}

	for _, tt := range tests {
		if got := RoleOf(tt.nodeType); got != tt.want {
			t.Errorf("RoleOf(%q) = %v, want %v", tt.nodeType, got, tt.want)
		}
	}
}

func TestGraphFirst(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "g1", Type: TypeLLMEngine, Data: NodeData{Model: "first"}},
			{ID: "g2", Type: TypeLLMEngine, Data: NodeData{Model: "second"}},
		},
	}

	n, ok := g.First(RoleGenerator)
	if !ok {
		t.Fatal("First(RoleGenerator) not found")
	}
	if n.ID != "g1" {
		t.Errorf("First(RoleGenerator) = %q, want declaration-order first %q", n.ID, "g1")
	}

	if _, ok := g.First(RoleOutput); ok {
		t.Error("First(RoleOutput) found a node in a graph without outputs")
	}
}
