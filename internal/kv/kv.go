// Package kv holds the LookupStore adapters: the key → long URL mapping read
// on every redirect.
package kv

import "errors"

// ErrNotFound is returned by Get when the key has no mapping
var ErrNotFound = errors.New("key not found")
