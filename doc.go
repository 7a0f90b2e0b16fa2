/*
Package pvec provides a persistent vector: an indexed sequence whose
versions share structure, so that every modification returns a new
version in about O(log32 n) time and space while all older versions stay
valid and unchanged.

Values live in the leaves of a 32-way trie, with the last partial leaf
kept aside as the tail so that appending rarely touches the tree. The
vector also tracks an origin, so prepending and windowing (Slice) are as
cheap as appending. Positions may be empty: Delete removes a value
without shifting the others, and Get reports whether a position holds a
value.

Transients

A vector made transient with AsTransient (or inside WithMutations) is
modified in place, copying only the nodes it has not already copied.
Building a large vector this way avoids allocating a path per element.
AsPersistent freezes it again. A transient vector is for one goroutine;
persistent vectors can be shared freely.

Storage

MakeRoot stores a vector's nodes through a Persist, naming each node by
the hash of its encoding, and LoadVector reads a version back from its
Root. Versions share nodes in storage as they do in memory; with a
NodeCache, storing a new version only writes the nodes that changed.
Package persist/file stores nodes as files, and persist/s3 stores them as
S3 objects.

Nested paths

GetIn, SetIn and DeleteIn descend through vectors (and anything else
implementing PathValue), creating containers for missing steps.

Inspiration

The persistent vector of Clojure, and its descendants in Immutable.js
and elsewhere, from which the trie layout, tail and transients come.
*/
package pvec
