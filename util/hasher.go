package util

import (
	"hash"
	"runtime"

	"github.com/taraxa-project/smt-store/common"
	"golang.org/x/crypto/sha3"
)

// Hasher wraps a keccak state that can be reset and reused; pooling it
// avoids re-allocating the sponge state on every node hash, which matters
// since the SMT update path hashes one node per trie level per key.
type Hasher struct {
	state hash_state
}

type hash_state interface {
	hash.Hash
	Read([]byte) (int, error)
}

func (self *Hasher) Write(b ...byte) {
	self.state.Write(b)
}

func (self *Hasher) Sum(out *common.Hash) *common.Hash {
	self.state.Read(out[:])
	return out
}

func (self *Hasher) Reset() {
	self.state.Reset()
}

var hashers = func() chan *Hasher {
	ret := make(chan *Hasher, runtime.NumCPU()*64)
	for i := 0; i < cap(ret); i++ {
		ret <- &Hasher{sha3.NewLegacyKeccak256().(hash_state)}
	}
	return ret
}()

func GetHasherFromPool() *Hasher {
	select {
	case h := <-hashers:
		return h
	default:
		return &Hasher{sha3.NewLegacyKeccak256().(hash_state)}
	}
}

func ReturnHasherToPool(h *Hasher) {
	h.Reset()
	select {
	case hashers <- h:
	default:
	}
}

// Hash concatenates bs and returns H(bs...). It is the single hash
// primitive shared by the SMT's empty/leaf/branch node hashing and by the
// leaf value hashing the engine performs at the storage boundary.
func Hash(bs ...[]byte) (ret common.Hash) {
	hasher := GetHasherFromPool()
	for _, b := range bs {
		hasher.Write(b...)
	}
	hasher.Sum(&ret)
	ReturnHasherToPool(hasher)
	return
}
