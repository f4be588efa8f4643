package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

// CredentialStore hashea y verifica contraseñas con bcrypt.
type CredentialStore struct {
	cost int
}

func NewCredentialStore(cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &CredentialStore{cost: cost}
}

// Hash devuelve un hash con sal embebida; dos llamadas con la misma
// contraseña producen salidas distintas.
func (s *CredentialStore) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify compara en tiempo constante respecto del contenido.
func (s *CredentialStore) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
