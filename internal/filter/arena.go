package filter

import "errors"

// arenaAlign is the alignment of every reserved range.
const arenaAlign = 8

var errArenaSealed = errors.New("scratch arena is sealed")

// arena is the per-call scratch buffer shared by all filter-sets.
// Ranges are handed out during registration; the buffer is allocated once
// when the arena is sealed and never resized afterwards.
type arena struct {
	size   int
	buf    []byte
	sealed bool
}

// reserve returns the offset of a new n-byte range.
func (a *arena) reserve(n int) (int, error) {
	if a.sealed {
		return 0, errArenaSealed
	}
	offset := a.size
	a.size += (n + arenaAlign - 1) &^ (arenaAlign - 1)
	return offset, nil
}

// seal allocates the buffer.
func (a *arena) seal() {
	if a.sealed {
		return
	}
	a.buf = make([]byte, a.size)
	a.sealed = true
}

// slice returns the range at offset, capped so appends cannot spill into a
// neighbour.
func (a *arena) slice(offset, n int) []byte {
	if n == 0 || !a.sealed {
		return nil
	}
	return a.buf[offset : offset+n : offset+n]
}
