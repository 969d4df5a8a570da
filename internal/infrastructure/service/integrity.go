package service

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/cogniquest/cogniquest-engine/internal/domain/puzzle"
)

// IntegritySigner signs puzzles handed to the client so submitted
// answers can be matched to an untampered puzzle. The signature covers
// the fields that affect scoring; content is free to vary in rendering.
type IntegritySigner struct {
	secret []byte
}

// NewIntegritySigner creates a signer with the given secret.
func NewIntegritySigner(secret []byte) *IntegritySigner {
	return &IntegritySigner{secret: secret}
}

// Sign returns a hex-encoded SHA3-256 signature for the puzzle.
func (s *IntegritySigner) Sign(p *puzzle.Puzzle) string {
	h := sha3.New256()
	h.Write(s.secret)
	fmt.Fprintf(h, "%s|%s|%s|%d|%d|%d",
		p.ID, p.CategoryID, p.Kind, p.Level, p.Difficulty.Int(), p.TimeLimit)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether sig matches the puzzle. Constant-time.
func (s *IntegritySigner) Verify(p *puzzle.Puzzle, sig string) bool {
	expected := s.Sign(p)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
