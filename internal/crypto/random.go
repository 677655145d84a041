package crypto

import (
	"encoding/binary"
	"errors"
	"io"
)

// RandomUint32 returns a uniform value in [lo, hi] read from r.
func RandomUint32(r io.Reader, lo, hi uint32) (uint32, error) {
	if lo > hi {
		return 0, errors.New("crypto: empty range")
	}
	span := uint64(hi-lo) + 1
	// Rejection sampling keeps the distribution uniform.
	limit := (uint64(1) << 32) - ((uint64(1) << 32) % span)
	var buf [4]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := uint64(binary.BigEndian.Uint32(buf[:]))
		if v < limit {
			return lo + uint32(v%span), nil
		}
	}
}
