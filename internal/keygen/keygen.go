package keygen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const base = int64(len(alphabet))

// Length is the number of characters in a generated key
const Length = 8

// Generator produces short keys from a cryptographically secure source
type Generator struct {
	random io.Reader
}

// New returns a Generator backed by crypto/rand
func New() *Generator {
	return &Generator{random: rand.Reader}
}

// NewWithReader returns a Generator that reads randomness from r
func NewWithReader(r io.Reader) *Generator {
	return &Generator{random: r}
}

// Generate returns a key of Length characters drawn uniformly from the alphabet
func (g *Generator) Generate() (string, error) {
	key := make([]byte, Length)
	n := big.NewInt(base)
	for i := range key {
		idx, err := rand.Int(g.random, n)
		if err != nil {
			return "", fmt.Errorf("read random index: %w", err)
		}
		key[i] = alphabet[idx.Int64()]
	}
	return string(key), nil
}

// Valid reports whether key has the shape of a generated key
func Valid(key string) bool {
	if len(key) != Length {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
