package stack

import (
	"strings"
	"testing"
)

func TestCollectionName(t *testing.T) {
	stackID := "5f0c9a4e-2d1b-4c3a-9e8f-7a6b5c4d3e2f"
	got := CollectionName(stackID)

	if !strings.HasPrefix(got, "stack_5f0c9a4e_2d1b_4c3a_9e8f_7a6b5c4d3e2f_") {
		t.Errorf("CollectionName() = %q, want flattened stack id prefix", got)
	}
	if strings.Contains(got, "-") {
		t.Errorf("CollectionName() = %q contains a dash", got)
	}

	// The random suffix keeps repeated uploads apart.
	if again := CollectionName(stackID); again == got {
		t.Errorf("CollectionName() returned the same name twice: %q", got)
	}
}

func TestNewStoreRequiresPool(t *testing.T) {
	if _, err := NewStore(nil, nil); err == nil {
		t.Fatal("NewStore(nil) succeeded, want error")
	}
}
