package construction

import (
	"errors"
	"testing"
)

func TestCheckCollisionsCleanBatch(t *testing.T) {
	_, _, _, top := buildDiamond(t)
	if err := CheckCollisions(WalkOrder(top)); err != nil {
		t.Fatalf("distinct constructions should not collide: %v", err)
	}
}

func TestCheckCollisionsAllowsRepeatedKeys(t *testing.T) {
	leaf := mustLeaf(t, 2, 0, []int{4}, []int{6})
	same := mustLeaf(t, 2, 0, []int{4}, []int{6})
	if err := CheckCollisions([]Node{leaf, same}); err != nil {
		t.Fatalf("equal keys sharing a hash is not a collision: %v", err)
	}
}

func TestCheckCollisionsDetectsSharedHash(t *testing.T) {
	a := mustLeaf(t, 2, 0, []int{4}, []int{6})
	b := mustLeaf(t, 2, 2, []int{4}, []int{6})
	err := checkCollisionsWith([]Node{a, b}, func(Key) string { return "deadbeef" })
	var collision IdentityCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected IdentityCollisionError, got %v", err)
	}
	if collision.Hash != "deadbeef" {
		t.Fatalf("collision hash = %q", collision.Hash)
	}
	if collision.KeyA == collision.KeyB {
		t.Fatal("collision must report two distinct keys")
	}
}
