package keygen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Shape(t *testing.T) {
	g := New()

	for i := 0; i < 1000; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, key, Length)
		assert.True(t, Valid(key), "key %q has invalid characters", key)
	}
}

func TestGenerate_Uniformity(t *testing.T) {
	const samples = 100_000
	g := New()

	counts := make(map[rune]int, len(alphabet))
	for i := 0; i < samples; i++ {
		key, err := g.Generate()
		require.NoError(t, err)
		for _, c := range key {
			counts[c]++
		}
	}

	// Every symbol must appear and none outside the alphabet.
	require.Len(t, counts, len(alphabet))

	// Pearson chi-square against the uniform distribution, 35 degrees of
	// freedom. The 0.9999 quantile is about 74; 90 keeps this test quiet
	// while still catching a modulo-style bias.
	total := float64(samples * Length)
	expected := total / float64(len(alphabet))
	var chi2 float64
	for _, c := range alphabet {
		diff := float64(counts[c]) - expected
		chi2 += diff * diff / expected
	}
	assert.Less(t, chi2, 90.0, "chi-square %.2f suggests a biased alphabet", chi2)
}

func TestGenerate_DeterministicReader(t *testing.T) {
	// Identical random input produces identical keys.
	seed := bytes.Repeat([]byte{0x01, 0x7f, 0x33, 0xc2}, 64)

	a, err := NewWithReader(bytes.NewReader(seed)).Generate()
	require.NoError(t, err)
	b, err := NewWithReader(bytes.NewReader(seed)).Generate()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, Valid(a))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_ReaderError(t *testing.T) {
	_, err := NewWithReader(failingReader{}).Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"generated shape", "abc12345", true},
		{"too short", "abc1234", false},
		{"too long", "abc123456", false},
		{"uppercase", "ABC12345", false},
		{"symbol", "abc-1234", false},
		{"empty", "", false},
		{"all digits", strings.Repeat("9", Length), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Valid(tt.input))
		})
	}
}
