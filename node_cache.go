package pvec

import lru "github.com/hashicorp/golang-lru"

// NodeCache remembers the nodes of stored or loaded vectors in both
// directions: a node's name maps to the decoded node, and the node itself
// maps to its name. Versions that share subtrees then only encode, store and
// load the nodes that differ. A cache belongs to one Persist; switch caches
// when switching stores.
type NodeCache interface {
	// Add records a key (a node name or a node) and what it maps to.
	Add(key, value interface{})
	// Contains reports whether the node with the given name is known to be
	// stored.
	Contains(key interface{}) bool
	// Get returns what the given name or node maps to, if cached.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewNodeCache creates an ARC-based node cache holding up to size entries.
// Each cached node takes two entries. One cache can be shared by vectors of
// any element type.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
