package validator

import (
	"errors"
	"strings"
)

var (
	ErrEmptyURL          = errors.New("url is empty")
	ErrUnsupportedScheme = errors.New("url must start with http:// or https://")
	ErrMissingKey        = errors.New("key is empty")
)

// URLValidator validates shorten and redirect inputs
type URLValidator struct {
	allowedSchemes []string
}

// NewURLValidator creates a validator accepting http and https
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http://", "https://"},
	}
}

// ValidateLongURL accepts any non-empty string that starts with an allowed
// scheme prefix, compared case-insensitively. The rest of the URL is stored
// as given.
func (v *URLValidator) ValidateLongURL(rawURL string) error {
	if rawURL == "" {
		return ErrEmptyURL
	}
	if !v.hasAllowedScheme(rawURL) {
		return ErrUnsupportedScheme
	}
	return nil
}

// ValidateKey checks a redirect key taken from the request path
func (v *URLValidator) ValidateKey(key string) error {
	if key == "" {
		return ErrMissingKey
	}
	return nil
}

func (v *URLValidator) hasAllowedScheme(rawURL string) bool {
	for _, prefix := range v.allowedSchemes {
		if len(rawURL) >= len(prefix) && strings.EqualFold(rawURL[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}
