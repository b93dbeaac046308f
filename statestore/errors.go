package statestore

import (
	"github.com/taraxa-project/smt-store/common"
	"github.com/taraxa-project/smt-store/util"
)

var (
	// ErrNotFound mirrors kv.ErrNotFound at the state-store boundary; a
	// normal, expected condition, never treated as exceptional.
	ErrNotFound = util.ErrorString("statestore: not found")
	// ErrInvalidInput is returned when a snapshot is restored from an
	// empty stack. A wrong key length passed to Commit surfaces as the
	// SMT's own smt.ErrInvalidKeyLength.
	ErrInvalidInput = util.ErrorString("statestore: invalid input")
	// ErrInvalidState covers a prevRoot mismatch at commit/revert, a
	// revert of a height that is not the top one, or a missing diff
	// record. Operations on a closed store return ErrClosed.
	ErrInvalidState = util.ErrorString("statestore: invalid state")
	ErrClosed       = util.ErrorString("statestore: closed")
	// ErrCorruption is fatal: a reachable node hash has no backing
	// bytes, or a persisted record fails to decode. Never recovered
	// from.
	ErrCorruption = util.ErrorString("statestore: corruption")
)

// RootMismatchError is returned by Commit when opts.CheckRoot is set
// and the computed root does not equal opts.ExpectedRoot.
type RootMismatchError struct {
	Expected, Actual common.Hash
}

func (self *RootMismatchError) Error() string {
	return "statestore: root mismatch: expected " + self.Expected.Hex() + ", got " + self.Actual.Hex()
}
