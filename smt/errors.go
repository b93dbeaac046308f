package smt

import "github.com/taraxa-project/smt-store/util"

var (
	// ErrInvalidKeyLength is returned by Update/Prove when a supplied key's
	// length does not equal the tree's configured K.
	ErrInvalidKeyLength = util.ErrorString("smt: invalid key length")
	// ErrRootNotFound is returned when the root hash passed to Update or
	// Prove does not resolve in the node store.
	ErrRootNotFound = util.ErrorString("smt: root does not resolve")
	// ErrDuplicateQuery is returned by Prove when the query key set
	// contains the same key twice.
	ErrDuplicateQuery = util.ErrorString("smt: duplicate query key")
	// ErrNodeNotFound is returned by a NodeStore when a non-empty node
	// hash it is asked for is absent; it signals storage corruption,
	// since every reachable node must be present.
	ErrNodeNotFound = util.ErrorString("smt: node not found (corruption)")
	// ErrMalformedNode is returned when a node's stored bytes do not
	// decode to a recognised tag.
	ErrMalformedNode = util.ErrorString("smt: malformed node encoding")
)
