package core

import (
	"testing"
)

// TestNewHashDeterministic tests that identical data yields identical hashes
func TestNewHashDeterministic(t *testing.T) {
	a := NewHash([]byte("ACDEFGHIKL"))
	b := NewHash([]byte("ACDEFGHIKL"))
	if !a.Equals(b) {
		t.Errorf("Expected identical hashes, got %s and %s", a, b)
	}
	if a.IsEmpty() {
		t.Error("Expected non-empty hash")
	}
	if len(a.String()) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a.String()))
	}
}

// TestComputeBatchHashOrderInvariance tests that batch identity ignores input order
func TestComputeBatchHashOrderInvariance(t *testing.T) {
	forward := ComputeBatchHash([]string{"aaa111bbb222", "ccc333ddd444", "eee555fff666"})
	reversed := ComputeBatchHash([]string{"eee555fff666", "ccc333ddd444", "aaa111bbb222"})
	if forward != reversed {
		t.Errorf("Expected order-invariant batch hash, got %s and %s", forward, reversed)
	}

	different := ComputeBatchHash([]string{"aaa111bbb222", "ccc333ddd444"})
	if forward == different {
		t.Error("Expected different batches to hash differently")
	}
}
