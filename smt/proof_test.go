package smt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-project/smt-store/util"
)

func TestProveVerifyInclusion(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: key32(0x00), Value: []byte("a")},
		{Key: key32(0x80), Value: []byte("b")},
	})
	require.NoError(err)

	proof, err := tree.Prove(store, root, [][]byte{key32(0x00)})
	require.NoError(err)
	require.True(tree.Verify(root, [][]byte{key32(0x00)}, proof))
}

func TestProveVerifyExclusionByEmptySubtree(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	// Both keys sit under the root's left child (bit 0 == 0), so the
	// root's right child is an empty subtree.
	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: key32(0x00), Value: []byte("a")},
		{Key: key32(0x40), Value: []byte("b")},
	})
	require.NoError(err)

	missing := key32(0x80) // bit 0 == 1: walks into the empty right child
	proof, err := tree.Prove(store, root, [][]byte{missing})
	require.NoError(err)
	require.False(proof.Queries[0].Included)
	require.False(proof.Queries[0].ForeignLeaf)
	require.True(tree.Verify(root, [][]byte{missing}, proof))
}

func TestProveVerifyExclusionByForeignLeaf(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	k1 := key32(0x00)
	k1[31] = 0x01
	root, err := tree.Update(store, EmptyHash, []KV{{Key: k1, Value: []byte("a")}})
	require.NoError(err)

	k2 := key32(0x00)
	k2[31] = 0x02
	proof, err := tree.Prove(store, root, [][]byte{k2})
	require.NoError(err)
	require.False(proof.Queries[0].Included)
	require.True(proof.Queries[0].ForeignLeaf)
	require.True(tree.Verify(root, [][]byte{k2}, proof))
}

func TestVerifyRejectsForeignLeafForgedAsQueriedKey(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	k1 := key32(0x00)
	k1[31] = 0x01
	root, err := tree.Update(store, EmptyHash, []KV{{Key: k1, Value: []byte("a")}})
	require.NoError(err)

	k2 := key32(0x00)
	k2[31] = 0x02
	proof, err := tree.Prove(store, root, [][]byte{k2})
	require.NoError(err)
	require.True(tree.Verify(root, [][]byte{k2}, proof))

	// An adversary now tries to forge an exclusion proof for k1 (which
	// is genuinely present) by reusing its own leaf as the "foreign"
	// leaf terminating the walk.
	forged := &Proof{Queries: []ProofQuery{{
		Key:                  k1,
		ForeignLeaf:          true,
		ForeignLeafKey:       k1,
		ForeignLeafValueHash: util.Hash([]byte("a")),
	}}}
	require.False(tree.Verify(root, [][]byte{k1}, forged))
}

func TestVerifyRejectsForeignLeafThatDoesNotShareTraversedPrefix(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	k1 := key32(0x00) // bit 0 == 0
	k2 := key32(0x80) // bit 0 == 1
	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: k1, Value: []byte("a")},
		{Key: k2, Value: []byte("b")},
	})
	require.NoError(err)

	k3 := key32(0x00) // bit 0 == 0, same side of the root branch as k1
	k3[31] = 0x05
	proof, err := tree.Prove(store, root, [][]byte{k3})
	require.NoError(err)
	require.True(proof.Queries[0].ForeignLeaf)
	require.True(tree.Verify(root, [][]byte{k3}, proof))

	// Swap in k2 (a real leaf, but on the other side of the root
	// branch) as the terminating foreign leaf. k2's path disagrees
	// with k3's on bit 0, the one bit the real proof already consumed,
	// so this must be rejected even though k2's leaf hash is genuine.
	tampered := *proof
	tampered.Queries = append([]ProofQuery(nil), proof.Queries...)
	tampered.Queries[0].ForeignLeafKey = k2
	tampered.Queries[0].ForeignLeafValueHash = util.Hash([]byte("b"))
	require.False(tree.Verify(root, [][]byte{k3}, &tampered))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: key32(0x00), Value: []byte("a")},
		{Key: key32(0x80), Value: []byte("b")},
	})
	require.NoError(err)

	proof, err := tree.Prove(store, root, [][]byte{key32(0x00)})
	require.NoError(err)
	require.True(tree.Verify(root, [][]byte{key32(0x00)}, proof))

	proof.Queries[0].ValueHash[0] ^= 0xff
	require.False(tree.Verify(root, [][]byte{key32(0x00)}, proof))
}

func TestProveRejectsDuplicateQuery(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{{Key: key32(0x00), Value: []byte("a")}})
	require.NoError(err)

	_, err = tree.Prove(store, root, [][]byte{key32(0x00), key32(0x00)})
	require.Equal(ErrDuplicateQuery, err)
}

func TestVerifyNeverPanicsOnMalformedProof(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	var malformed *Proof
	require.False(tree.Verify(EmptyHash, [][]byte{key32(0x00)}, malformed))

	require.False(tree.Verify(EmptyHash, [][]byte{key32(0x00)}, &Proof{Queries: []ProofQuery{
		{Key: key32(0x00), Bitmap: []bool{true}, Siblings: nil},
	}}))
}

func TestMerkleTreeFacade(t *testing.T) {
	require := require.New(t)
	smtree := NewSparseMerkleTree(32)

	_, err := smtree.Update([]KV{{Key: key32(0x00), Value: []byte("a")}})
	require.NoError(err)

	proof, err := smtree.Prove([][]byte{key32(0x00)})
	require.NoError(err)
	require.True(smtree.Verify([][]byte{key32(0x00)}, proof))
}
