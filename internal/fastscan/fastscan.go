// Package fastscan provides byte-level comparison and hashing primitives
// used by the alpha network to test and hash slot values and multifield
// marker ranges.
//
// Slot values frequently arrive as []byte (symbol names, string slots).
// Equal and Hash64 pick a word-at-a-time (SWAR) code path on platforms
// where the CPU exposes it efficiently and fall back to a byte loop
// everywhere else. The choice is driven by golang.org/x/sys/cpu feature
// detection rather than build tags, so the same binary adapts to the
// machine it runs on.
package fastscan

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// wordPath is true when the host CPU makes 8-byte-at-a-time comparison and
// hashing worthwhile. On amd64/arm64 this is effectively always true; on
// other architectures we defer to the generic byte loop.
var wordPath = cpu.X86.HasSSE2 || cpu.ARM64.HasASIMD

// Equal reports whether a and b hold identical bytes.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if !wordPath || len(a) < 8 {
		return equalGeneric(a, b)
	}
	return equalSWAR(a, b)
}

func equalGeneric(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// equalSWAR compares 8 bytes at a time via uint64 loads, which avoids the
// per-byte bounds-check/branch overhead of equalGeneric on long slot values.
func equalSWAR(a, b []byte) bool {
	n := len(a)
	i := 0
	for ; i+8 <= n; i += 8 {
		if binary.LittleEndian.Uint64(a[i:]) != binary.LittleEndian.Uint64(b[i:]) {
			return false
		}
	}
	return equalGeneric(a[i:], b[i:])
}

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants used to hash slot
// values and multifield marker ranges into an alpha/beta memory bucket.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

// Hash64 computes a 64-bit hash of data: FNV-1a for inputs shorter than 8
// bytes or when the word path is off, and hash64SWAR's 8-bytes-per-round
// fold (not byte-wise FNV-1a) otherwise. Used as the bucket function for
// alpha-memory hashing (§4.1) and for the left/right hash expressions of
// hashed beta memories (§4.2).
func Hash64(data []byte) uint64 {
	if wordPath && len(data) >= 8 {
		return hash64SWAR(data)
	}
	return hash64Generic(data)
}

func hash64Generic(data []byte) uint64 {
	h := uint64(fnvOffset)
	for _, b := range data {
		h ^= uint64(b)
		h *= fnvPrime
	}
	return h
}

// hash64SWAR folds 8 bytes per FNV-1a round instead of 1, trading perfect
// byte-for-byte FNV output for throughput. Used only for hashing (where
// any well-distributed function is acceptable), never for comparison.
func hash64SWAR(data []byte) uint64 {
	h := uint64(fnvOffset)
	n := len(data)
	i := 0
	for ; i+8 <= n; i += 8 {
		h ^= binary.LittleEndian.Uint64(data[i:])
		h *= fnvPrime
	}
	for ; i < n; i++ {
		h ^= uint64(data[i])
		h *= fnvPrime
	}
	return h
}

// HashUint32 mixes a single uint32 (e.g. an ordinal slot number or an
// entity id used as part of a composite hash key) into a 64-bit hash.
func HashUint32(v uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return Hash64(buf[:])
}
