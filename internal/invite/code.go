// Package invite allocates the short codes that gate access to private rooms.
package invite

import (
	"fmt"
	"strings"

	gonanoid "github.com/jaevor/go-nanoid"
)

const (
	DefaultLength = 6
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator yields candidate invite codes. Uniqueness is the directory's job.
type Generator interface {
	Next() string
}

type Codes struct {
	next   func() string
	length int
}

func New(length int) (*Codes, error) {
	if length <= 0 {
		length = DefaultLength
	}
	next, err := gonanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("invite: build generator: %w", err)
	}
	return &Codes{next: next, length: length}, nil
}

func (c *Codes) Next() string {
	return c.next()
}

func (c *Codes) Length() int {
	return c.length
}

// Normalize folds user input onto the stored form so lookups are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// WellFormed reports whether a normalized code only uses the code alphabet.
func WellFormed(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
