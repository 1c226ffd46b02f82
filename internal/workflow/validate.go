package workflow

// Validation messages. The frontend matches on these strings, so they are
// part of the API contract.
const (
	msgValid   = "Workflow is valid and ready for execution"
	msgInvalid = "Workflow validation failed"

	errMissingQuerySource = "Workflow must include a User Query component"
	errMissingGenerator   = "Workflow must include an LLM Engine component"
	errMissingOutput      = "Workflow must include an Output component"
	errGeneratorNoInput   = "LLM Engine must have an input connection"
	errGeneratorNoOutput  = "LLM Engine must be connected to Output"
)

// ValidationResult reports the outcome of validating a workflow graph.
// It is a pure value: validation never raises and never short-circuits, so
// Errors lists every violated rule.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Validate checks structural well-formedness of a workflow graph.
//
// Rules, all evaluated (errors accumulate):
//  1. The graph must contain at least one user-query, one LLM-engine and one
//     output node.
//  2. Every LLM-engine node must have at least one incoming edge.
//  3. Every LLM-engine node must have an outgoing edge to an output node.
//
// Edges referencing unknown node ids are ignored: they contribute no
// adjacency and are not themselves reported as errors.
func Validate(g Graph) ValidationResult {
	var errs []string

	roles := make(map[Role]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		roles[n.Role()] = true
	}

	if !roles[RoleQuerySource] {
		errs = append(errs, errMissingQuerySource)
	}
	if !roles[RoleGenerator] {
		errs = append(errs, errMissingGenerator)
	}
	if !roles[RoleOutput] {
		errs = append(errs, errMissingOutput)
	}

	nodeByID := g.nodeByID()

	incoming := make(map[string][]string, len(g.Nodes))
	outgoing := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := nodeByID[e.Source]; ok {
			outgoing[e.Source] = append(outgoing[e.Source], e.Target)
		}
		if _, ok := nodeByID[e.Target]; ok {
			incoming[e.Target] = append(incoming[e.Target], e.Source)
		}
	}

	for _, n := range g.Nodes {
		if n.Role() != RoleGenerator {
			continue
		}
		if len(incoming[n.ID]) == 0 {
			errs = append(errs, errGeneratorNoInput)
		}
	}

	for _, n := range g.Nodes {
		if n.Role() != RoleGenerator {
			continue
		}
		connected := false
		for _, target := range outgoing[n.ID] {
			if nodeByID[target].Role() == RoleOutput {
				connected = true
				break
			}
		}
		if !connected {
			errs = append(errs, errGeneratorNoOutput)
		}
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Message: msgInvalid, Errors: errs}
	}
	return ValidationResult{Valid: true, Message: msgValid, Errors: []string{}}
}
