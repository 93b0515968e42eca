package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLongURL(t *testing.T) {
	v := NewURLValidator()

	tests := []struct {
		name     string
		input    string
		expected error
	}{
		{"https", "https://example.com/page", nil},
		{"http", "http://example.com", nil},
		{"uppercase scheme", "HTTPS://EXAMPLE.COM", nil},
		{"mixed case scheme", "hTtP://example.com", nil},
		{"scheme only", "https://", nil},
		{"empty", "", ErrEmptyURL},
		{"ftp", "ftp://example.com", ErrUnsupportedScheme},
		{"no scheme", "example.com", ErrUnsupportedScheme},
		{"missing slashes", "https:example.com", ErrUnsupportedScheme},
		{"leading space", " https://example.com", ErrUnsupportedScheme},
		{"javascript", "javascript:alert(1)", ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.ValidateLongURL(tt.input))
		})
	}
}

func TestValidateKey(t *testing.T) {
	v := NewURLValidator()
	assert.ErrorIs(t, v.ValidateKey(""), ErrMissingKey)
	assert.NoError(t, v.ValidateKey("abc12345"))
}
