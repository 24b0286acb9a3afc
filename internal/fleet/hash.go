package fleet

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// RecalculateCompositionHash recomputes the digest over the sorted set of ship
// identifiers currently in the roster. It must be invoked after any operation
// that changes roster membership (battle reduction, split, land) and at no
// other time; two copies of a fleet diverge exactly when their hashes differ.
func (f *Fleet) RecalculateCompositionHash() {
	if f == nil {
		return
	}
	hasher := blake3.New(16, nil)
	var buf [8]byte
	for _, id := range f.SortedShipIDs() {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = hasher.Write(buf[:])
	}
	f.CompositionHash = hex.EncodeToString(hasher.Sum(nil))
}
