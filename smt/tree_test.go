package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taraxa-project/smt-store/common"
)

func key32(b byte) []byte {
	k := make([]byte, 32)
	k[0] = b
	return k
}

func TestUpdateSingleKey(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{{Key: key32(0x00), Value: []byte("a")}})
	require.NoError(err)
	require.NotEqual(EmptyHash, root)

	raw, err := store.GetNode(root)
	require.NoError(err)
	tag, err := nodeTag(raw)
	require.NoError(err)
	require.Equal(tagLeaf, tag)
}

func TestUpdateEmptyValueIsNoopOnEmptyTree(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{{Key: key32(0x00), Value: nil}})
	require.NoError(err)
	require.Equal(EmptyHash, root)
}

func TestUpdateRootDeterministicUnderPermutation(t *testing.T) {
	assert := assert.New(t)
	pairs := []KV{
		{Key: key32(0x00), Value: []byte("a")},
		{Key: key32(0x80), Value: []byte("b")},
		{Key: key32(0x40), Value: []byte("c")},
	}
	reversed := []KV{pairs[2], pairs[0], pairs[1]}

	tree := New(32)
	rootA, err := tree.Update(newMemStore(), EmptyHash, pairs)
	assert.NoError(err)
	rootB, err := tree.Update(newMemStore(), EmptyHash, reversed)
	assert.NoError(err)
	assert.Equal(rootA, rootB)
}

func TestUpdateDeleteCollapsesToRemainingKey(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: key32(0x00), Value: []byte("a")},
		{Key: key32(0x80), Value: []byte("b")},
	})
	require.NoError(err)

	afterDelete, err := tree.Update(store, root, []KV{{Key: key32(0x00), Value: nil}})
	require.NoError(err)

	soloRoot, err := New(32).Update(newMemStore(), EmptyHash, []KV{{Key: key32(0x80), Value: []byte("b")}})
	require.NoError(err)

	require.Equal(soloRoot, afterDelete)
}

func TestUpdateDuplicateKeyLastWriteWins(t *testing.T) {
	require := require.New(t)
	tree := New(32)

	root, err := tree.Update(newMemStore(), EmptyHash, []KV{
		{Key: key32(0x00), Value: []byte("first")},
		{Key: key32(0x00), Value: []byte("second")},
	})
	require.NoError(err)

	want, err := New(32).Update(newMemStore(), EmptyHash, []KV{{Key: key32(0x00), Value: []byte("second")}})
	require.NoError(err)
	require.Equal(want, root)
}

func TestUpdateRejectsWrongKeyLength(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	_, err := tree.Update(newMemStore(), EmptyHash, []KV{{Key: []byte{0x00}, Value: []byte("a")}})
	require.Equal(ErrInvalidKeyLength, err)
}

func TestUpdateRejectsUnresolvableRoot(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	_, err := tree.Update(newMemStore(), common.BytesToHash([]byte{0xff}), []KV{{Key: key32(0x00), Value: []byte("a")}})
	require.Equal(ErrRootNotFound, err)
}

func TestUpdateTwoKeysSharingPrefixBuildsChainToDivergence(t *testing.T) {
	require := require.New(t)
	tree := New(32)
	store := newMemStore()

	k1 := make([]byte, 32)
	k2 := make([]byte, 32)
	k2[31] = 0x01 // differs from k1 only in the last bit of the path

	root, err := tree.Update(store, EmptyHash, []KV{
		{Key: k1, Value: []byte("a")},
		{Key: k2, Value: []byte("b")},
	})
	require.NoError(err)

	raw, err := store.GetNode(root)
	require.NoError(err)
	tag, err := nodeTag(raw)
	require.NoError(err)
	require.Equal(tagBranch, tag)
}
