package construction

// CheckCollisions verifies that distinct identity keys among the given nodes
// map to distinct cache hashes. A hit means two different constructions would
// share one cache entry, so batches run it before any compute or save.
func CheckCollisions(nodes []Node) error {
	return checkCollisionsWith(nodes, Key.Hash)
}

func checkCollisionsWith(nodes []Node, hash func(Key) string) error {
	byHash := make(map[string]Key, len(nodes))
	for _, n := range nodes {
		k := n.Key()
		h := hash(k)
		prev, ok := byHash[h]
		if !ok {
			byHash[h] = k
			continue
		}
		if !prev.Equal(k) {
			return IdentityCollisionError{
				Hash: h,
				KeyA: prev.Canonical(),
				KeyB: k.Canonical(),
			}
		}
	}
	return nil
}
