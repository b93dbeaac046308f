package smt

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/util"
)

// minCachedNodeStoreSize is a floor under any caller-requested cache
// size: an LRU with only a handful of slots thrashes on the first
// branch split and is not worth the bookkeeping over no cache at all.
const minCachedNodeStoreSize = 16

// NodeStore is the storage seam the engine is given by its caller. All
// three methods operate inside a single write batch the caller owns;
// the engine itself never issues a disk write.
//
// SetNode persists newly produced node bytes under hash. DeleteNode
// reports that a node is no longer referenced by the tree being
// produced; it is a pure signal for the caller's own bookkeeping
// (e.g. a diff record) — whether and when to actually reclaim the
// bytes is the caller's call, not this package's.
type NodeStore interface {
	GetNode(hash common.Hash) ([]byte, error)
	SetNode(hash common.Hash, encoded []byte)
	DeleteNode(hash common.Hash)
}

// memStore is a trivial, unbounded in-memory NodeStore backing the
// no-persistence SparseMerkleTree facade (§6.3).
type memStore struct {
	nodes map[common.Hash][]byte
}

func newMemStore() *memStore {
	return &memStore{nodes: make(map[common.Hash][]byte)}
}

func (self *memStore) GetNode(hash common.Hash) ([]byte, error) {
	raw, ok := self.nodes[hash]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return raw, nil
}

func (self *memStore) SetNode(hash common.Hash, encoded []byte) {
	self.nodes[hash] = encoded
}

func (self *memStore) DeleteNode(hash common.Hash) {
	delete(self.nodes, hash)
}

// CachedNodeStore wraps another NodeStore with a bounded LRU of
// resolved node bytes, so a single Update/Prove call does not re-fetch
// the same hot subtree nodes repeatedly from the underlying store.
// Writes and deletes pass straight through and also update the cache,
// since a just-written node is the most likely one to be read again
// within the same call.
type CachedNodeStore struct {
	underlying NodeStore
	cache      *lru.Cache
}

// NewCachedNodeStore wraps underlying with an LRU of at most size
// entries. size <= 0 disables caching (every call passes straight
// through).
func NewCachedNodeStore(underlying NodeStore, size int) *CachedNodeStore {
	self := &CachedNodeStore{underlying: underlying}
	if size > 0 {
		self.cache, _ = lru.New(util.Max(minCachedNodeStoreSize, size))
	}
	return self
}

func (self *CachedNodeStore) GetNode(hash common.Hash) ([]byte, error) {
	if self.cache != nil {
		if v, ok := self.cache.Get(hash); ok {
			return v.([]byte), nil
		}
	}
	raw, err := self.underlying.GetNode(hash)
	if err != nil {
		return nil, err
	}
	if self.cache != nil {
		self.cache.Add(hash, raw)
	}
	return raw, nil
}

func (self *CachedNodeStore) SetNode(hash common.Hash, encoded []byte) {
	self.underlying.SetNode(hash, encoded)
	if self.cache != nil {
		self.cache.Add(hash, encoded)
	}
}

func (self *CachedNodeStore) DeleteNode(hash common.Hash) {
	self.underlying.DeleteNode(hash)
	if self.cache != nil {
		self.cache.Remove(hash)
	}
}
