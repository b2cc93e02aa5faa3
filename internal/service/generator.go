package service

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	codeLength = 7
	charset    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxCodeAttempts bounds retry-on-collision during link creation.
	maxCodeAttempts = 3
)

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{4,12}$`)

// Codes that would shadow routes or confuse operators.
var reservedCodes = map[string]bool{
	"api":     true,
	"go":      true,
	"docs":    true,
	"health":  true,
	"404":     true,
	"expired": true,
	"error":   true,
}

// CodeGenerator produces short collision-resistant identifiers. Collisions
// are possible and handled by the caller retrying against the store.
type CodeGenerator interface {
	Generate() (string, error)
}

type codeGenerator struct{}

func NewCodeGenerator() CodeGenerator {
	return codeGenerator{}
}

func (codeGenerator) Generate() (string, error) {
	result := make([]byte, codeLength)
	for i := 0; i < codeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// validCustomCode checks caller-supplied codes: 4-12 chars, alphanumeric with
// dash/underscore, not a reserved route word.
func validCustomCode(code string) bool {
	return customCodePattern.MatchString(code) && !reservedCodes[code]
}
