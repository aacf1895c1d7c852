// Package cryptox implements the at-rest encryption for uploaded objects.
//
// Every object is sealed under its own AES-256-GCM key, derived from the
// object's public identifier, a process-wide master secret and a per-object
// random salt. The same (id, salt) pair always derives the same key, which
// is what makes decryption possible after the key itself is thrown away.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the per-object key derivation salt.
	SaltSize = 16

	keySize    = 32 // AES-256
	iterations = 100_000
)

// DefaultMasterKey is the development fallback used when no master secret
// is configured. Running with it in production defeats the purpose of the
// master secret; main warns loudly when it is in use.
const DefaultMasterKey = "default-master-key-change-in-production"

// ErrIntegrity is returned when authenticated decryption fails: tampered
// ciphertext, a truncated blob, the wrong salt or the wrong object id.
// Retrying is pointless, the same inputs will always fail the same way.
var ErrIntegrity = errors.New("ciphertext integrity check failed")

// DeriveKey derives the AES-256 key for an object from its id, the master
// secret and a salt. PBKDF2-HMAC-SHA256 with a fixed high iteration count;
// deterministic for a given (id, salt).
func DeriveKey(id string, masterKey, salt []byte) []byte {
	secret := append([]byte(id), masterKey...)
	return pbkdf2.Key(secret, salt, iterations, keySize, sha256.New)
}

// Cipher seals and opens object payloads. It holds only the master secret;
// per-object keys are derived on every call and never stored.
type Cipher struct {
	masterKey []byte
}

// New returns a Cipher using the given master secret. An empty secret
// falls back to DefaultMasterKey.
func New(masterKey string) *Cipher {
	if masterKey == "" {
		masterKey = DefaultMasterKey
	}
	return &Cipher{masterKey: []byte(masterKey)}
}

// Seal encrypts plaintext under a key derived for id with a fresh random
// salt. The returned ciphertext carries the GCM nonce as a prefix; the salt
// must be persisted alongside the object metadata or the payload is lost.
func (c *Cipher) Seal(plaintext []byte, id string) (salt, ciphertext []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generate salt: %w", err)
	}

	aead, err := c.aead(id, salt)
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext = aead.Seal(nonce, nonce, plaintext, nil)
	return salt, ciphertext, nil
}

// Open decrypts ciphertext produced by Seal for the same id and salt.
// Any authentication failure is reported as ErrIntegrity; there is no
// partial-decrypt path.
func (c *Cipher) Open(ciphertext []byte, id string, salt []byte) ([]byte, error) {
	aead, err := c.aead(id, salt)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrIntegrity)
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}

func (c *Cipher) aead(id string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(id, c.masterKey, salt))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
