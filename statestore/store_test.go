package statestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/kv"
	"github.com/taraxa-project/smt-store/kv/memory"
	"github.com/taraxa-project/smt-store/smt"
)

func key32(b byte) []byte {
	k := make([]byte, 32)
	k[0] = b
	return k
}

func openTestStore(t *testing.T) *Store {
	s, err := Open(memory.New(), 32)
	require.NoError(t, err)
	return s
}

func currentRoot(t *testing.T, s *Store) common.Hash {
	root, err := s.CurrentRoot()
	require.NoError(t, err)
	return root
}

func commitOne(t *testing.T, s *Store, height uint64, prevRoot common.Hash, kvs map[byte]string) common.Hash {
	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	for b, v := range kvs {
		require.NoError(t, rw.Set(key32(b), []byte(v)))
	}
	root, err := s.Commit(rw, height, prevRoot, CommitOptions{})
	require.NoError(t, err)
	rw.Release()
	return root
}

func TestCommitPersistsValuesVisibleToNewReader(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a", 0x02: "b"})
	require.NotEqual(t, smt.EmptyHash, root)
	require.Equal(t, root, currentRoot(t, s))

	r, err := s.NewReader()
	require.NoError(t, err)
	defer r.Release()

	v, err := r.Get(key32(0x01))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)

	_, err = r.Get(key32(0x03))
	require.Equal(t, ErrNotFound, err)
}

func TestCommitRejectsStalePrevRoot(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	defer rw.Release()
	require.NoError(t, rw.Set(key32(0x02), []byte("b")))

	_, err = s.Commit(rw, 2, smt.EmptyHash, CommitOptions{})
	require.Equal(t, ErrInvalidState, err)
}

func TestCommitCheckRootMismatchAbortsWithoutPersisting(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	defer rw.Release()
	require.NoError(t, rw.Set(key32(0x01), []byte("a")))

	_, err = s.Commit(rw, 1, smt.EmptyHash, CommitOptions{CheckRoot: true, ExpectedRoot: key32ToHash(0xff)})
	require.Error(t, err)
	var mismatch *RootMismatchError
	require.ErrorAs(t, err, &mismatch)

	require.Equal(t, smt.EmptyHash, currentRoot(t, s))
}

func key32ToHash(b byte) common.Hash {
	return common.BytesToHash(key32(b))
}

func TestRevertRestoresPriorRootAndSideIndex(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root1 := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})
	root2 := commitOne(t, s, 2, root1, map[byte]string{0x01: "b", 0x02: "c"})
	require.Equal(t, root2, currentRoot(t, s))

	require.NoError(t, s.Revert(root1, 2))
	require.Equal(t, root1, currentRoot(t, s))

	r, err := s.NewReader()
	require.NoError(t, err)
	defer r.Release()

	v, err := r.Get(key32(0x01))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)

	_, err = r.Get(key32(0x02))
	require.Equal(t, ErrNotFound, err)
}

func TestRevertRejectsWrongHeight(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root1 := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})
	commitOne(t, s, 2, root1, map[byte]string{0x01: "b"})

	err := s.Revert(root1, 1)
	require.Equal(t, ErrInvalidState, err)
}

func TestRevertRejectsWrongPrevRoot(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root1 := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})
	commitOne(t, s, 2, root1, map[byte]string{0x01: "b"})

	err := s.Revert(key32ToHash(0xee), 2)
	require.Equal(t, ErrInvalidState, err)
}

func TestReaderIsolatedFromLaterCommits(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root1 := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})

	r, err := s.NewReader()
	require.NoError(t, err)
	defer r.Release()
	require.Equal(t, root1, r.Root())

	commitOne(t, s, 2, root1, map[byte]string{0x01: "b"})

	v, err := r.Get(key32(0x01))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)
}

func TestStoreCloseInvalidatesOutstandingReaders(t *testing.T) {
	s := openTestStore(t)

	commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})
	r, err := s.NewReader()
	require.NoError(t, err)

	require.NoError(t, s.Close())

	_, err = r.Get(key32(0x01))
	require.Equal(t, ErrClosed, err)

	_, err = s.NewReader()
	require.Equal(t, ErrClosed, err)
}

func TestFinalizePrunesDiffsAndUnreachableNodesButKeepsRetainedRoots(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root1 := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})
	root2 := commitOne(t, s, 2, root1, map[byte]string{0x01: "b"})
	root3 := commitOne(t, s, 3, root2, map[byte]string{0x02: "c"})
	require.Equal(t, root3, currentRoot(t, s))

	require.NoError(t, s.Finalize(3))

	top, ok, err := s.topDiffLocked()
	require.NoError(t, err)
	require.True(t, ok, "the diff at the finalize height itself is retained")
	require.Equal(t, uint64(3), top.Height)

	_, err = s.db.Get(diffKeyFor(1))
	require.Equal(t, kv.ErrNotFound, err)

	r, err := s.NewReader()
	require.NoError(t, err)
	defer r.Release()
	v, err := r.Get(key32(0x01))
	require.NoError(t, err)
	require.Equal(t, []byte("b"), v)

	_, err = s.db.Get(nodeKey(root3))
	require.NoError(t, err, "the current root's node must survive finalize")
}

func TestReadWriterSnapshotRestoresWritesAndDeletes(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	defer rw.Release()

	snap := rw.Snapshot()
	require.NoError(t, rw.Set(key32(0x01), []byte("b")))
	require.NoError(t, rw.Del(key32(0x01)))
	_ = snap

	require.NoError(t, rw.RestoreSnapshot())

	v, err := rw.Get(key32(0x01))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)
}

func TestReadWriterRestoreSnapshotWithoutSnapshotFails(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	defer rw.Release()

	require.Equal(t, ErrInvalidInput, rw.RestoreSnapshot())
}

func TestReadWriterRangeMergesCacheOverCommittedState(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a", 0x02: "b"})

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	defer rw.Release()

	require.NoError(t, rw.Set(key32(0x03), []byte("c")))
	require.NoError(t, rw.Del(key32(0x02)))

	entries, err := rw.Range(kv.IterateOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, key32(0x01), entries[0].Key)
	require.Equal(t, key32(0x03), entries[1].Key)
}

func TestCommitDeletingAbsentKeyIsNoopChange(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	root := commitOne(t, s, 1, smt.EmptyHash, map[byte]string{0x01: "a"})

	rw, err := s.NewReadWriter()
	require.NoError(t, err)
	require.NoError(t, rw.Del(key32(0x02)))
	newRoot, err := s.Commit(rw, 2, root, CommitOptions{})
	require.NoError(t, err)
	rw.Release()

	require.Equal(t, root, newRoot, "deleting a never-present key must not move the root")
}
