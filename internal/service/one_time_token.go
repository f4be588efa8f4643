package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const oneTimeTokenBytes = 32

// newOneTimeToken genera el valor crudo que se entrega al usuario y el
// hash que se persiste. El valor crudo nunca se guarda.
func newOneTimeToken() (raw, hash string, err error) {
	b := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

// hashToken devuelve el SHA-256 en hex del valor crudo.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
