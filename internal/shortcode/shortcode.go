// Package shortcode generates the random tokens used as short codes.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of symbols a short code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// Length is the length of every short code.
	Length = 8
)

// Generator produces random short codes of Length symbols.
// It keeps no state and does not check codes for uniqueness.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// Generate returns a new code drawn uniformly at random from Alphabet.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return code, nil
}

// Valid reports whether code could have been produced by g.
func (g *Generator) Valid(code string) bool {
	if len(code) != Length {
		return false
	}

	for i := 0; i < len(code); i++ {
		if !isAlphanumeric(code[i]) {
			return false
		}
	}

	return true
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
