// Package trackingid generates the short public code printed on a delivery
// record. Codes are random, not sequential; uniqueness is probabilistic and
// the record store enforces it with a unique index.
package trackingid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Prefix of every tracking code
const Prefix = "RET-"

var pattern = regexp.MustCompile(`^RET-[0-9A-F]{8}$`)

// Generator draws tracking codes from a random source
type Generator struct {
	rand io.Reader
}

// New returns a Generator backed by crypto/rand
func New() *Generator {
	return &Generator{rand: rand.Reader}
}

// NewWithReader returns a Generator reading from r
func NewWithReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate returns "RET-" followed by 8 uppercase hex characters
func (g *Generator) Generate() (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(g.rand, b[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(b[:])), nil
}

// Valid reports whether s has the tracking code format
func Valid(s string) bool {
	return pattern.MatchString(s)
}
