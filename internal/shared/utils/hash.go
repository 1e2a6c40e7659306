package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// WindowAppPrefix prefixes ids synthesized for window-backed apps
const WindowAppPrefix = "window:"

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher provides hashing of identity fields
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hex hash of the input data
func (h *Hasher) Hash(data []byte) string {
	// SHA256 is the only algorithm for now
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields computes an order-independent hash from multiple fields
func (h *Hasher) HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)
	return h.HashString(strings.Join(sorted, "|"))
}

// AppIdentifier synthesizes stable ids for apps that have no descriptor
type AppIdentifier struct {
	hasher *Hasher
}

// NewAppIdentifier creates a new app identifier
func NewAppIdentifier(hasher *Hasher) *AppIdentifier {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &AppIdentifier{hasher: hasher}
}

// WindowAppID derives the id of a window-backed app from the window that
// revealed it. The same window always yields the same id.
func (ai *AppIdentifier) WindowAppID(windowID, wmClass string) string {
	full := ai.hasher.HashFields("window:"+windowID, "class:"+wmClass)
	return WindowAppPrefix + ShortHash(full)
}

// IsWindowAppID reports whether id was synthesized by WindowAppID
func IsWindowAppID(id string) bool {
	return strings.HasPrefix(id, WindowAppPrefix)
}

// ShortHash returns the first 12 characters of a hash for display
func ShortHash(fullHash string) string {
	if len(fullHash) < 12 {
		return fullHash
	}
	return fullHash[:12]
}
