package service

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignora todo lo que pase de 72 bytes; por encima de eso se pre-hashea.
const bcryptMaxInput = 72

// PasswordHasher produce y verifica digests autodescriptivos.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
	// BurnCompare consume el mismo tiempo que Verify sin un digest real.
	BurnCompare(plaintext string)
}

// BcryptHasher implementa PasswordHasher con bcrypt y sal aleatoria por llamada.
type BcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(prepareBcryptInput(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify nunca falla con digests malformados: devuelve false.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), prepareBcryptInput(plaintext))
	return err == nil
}

// BurnCompare compara contra un digest generado una sola vez para que un email
// desconocido cueste lo mismo que una contrasena incorrecta.
func (h *BcryptHasher) BurnCompare(plaintext string) {
	h.dummyOnce.Do(func() {
		d, err := bcrypt.GenerateFromPassword([]byte("timing-equalization-placeholder"), h.cost)
		if err == nil {
			h.dummy = d
		}
	})
	if h.dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, prepareBcryptInput(plaintext))
}

func prepareBcryptInput(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxInput {
		return []byte(plaintext)
	}
	sum := sha256.Sum256([]byte(plaintext))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
