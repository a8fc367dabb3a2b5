package datamodel

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Rand is a chacha20 keystream turned into random numbers.  The key is the run
// seed and the nonce carries the stream number, so every task can own an
// independent, reproducible generator without sharing state.
type Rand struct {
	cipher *chacha20.Cipher
	buf    [8]byte
}

// creates the generator for stream `stream` of the given seed
func NewRand(seed int64, stream uint64) *Rand {
	var key [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte

	binary.LittleEndian.PutUint64(key[0:], uint64(seed))
	binary.LittleEndian.PutUint64(nonce[4:], stream)

	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// only happens with a malformed key or nonce size
		panic(err)
	}
	return &Rand{cipher: c}
}

// Seed restarts r at stream 0 of seed.  With Uint64 this makes a Rand usable
// as the source of gonum's graph generators.
func (r *Rand) Seed(seed uint64) {
	*r = *NewRand(int64(seed), 0)
}

func (r *Rand) Uint64() uint64 {
	r.buf = [8]byte{}
	r.cipher.XORKeyStream(r.buf[:], r.buf[:])
	return binary.LittleEndian.Uint64(r.buf[:])
}

// uniform in [0,1)
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

func (r *Rand) Intn(m int) int {

	if m <= 0 { //a case when no randomness is needed
		return 0
	}
	n := uint64(m)
	// reject the tail so every residue is equally likely
	limit := ^uint64(0) - (^uint64(0)%n+1)%n
	for {
		v := r.Uint64()
		if v <= limit {
			return int(v % n)
		}
	}
}

func (r *Rand) Perm(n int) []int {
	indexes := make([]int, n)
	for i := range indexes {
		indexes[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		indexes[i], indexes[j] = indexes[j], indexes[i]
	}
	return indexes
}

// draws k distinct elements of items without replacement; items is not modified
func Sample[T any](r *Rand, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	pool := make([]T, len(items))
	copy(pool, items)
	for i := 0; i < k; i++ {
		j := i + r.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
