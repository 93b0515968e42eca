package analytics

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIP returns the hex SHA-256 of ip. The raw address is never stored.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
