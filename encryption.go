package vigil

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
	encryptionSaltSize = 16
	encryptionKeySize  = 32
	pbkdf2Iterations   = 100_000
)

// ErrDecryptFailed is returned when a ciphertext cannot be authenticated,
// typically because of a wrong password or corrupted data.
var ErrDecryptFailed = errors.New("decryption failed")

// Encryptor seals and opens archive payloads with AES-256-GCM. Keys are
// derived from the password with PBKDF2 using a per-payload salt, so the
// same plaintext never produces the same ciphertext twice.
type Encryptor struct {
	password []byte
}

// NewEncryptor creates an encryptor from a password.
func NewEncryptor(password string) (*Encryptor, error) {
	if password == "" {
		return nil, errors.New("empty encryption password")
	}
	return &Encryptor{password: []byte(password)}, nil
}

// Encrypt seals plaintext. The output layout is salt || nonce || ciphertext.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, encryptionSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, encryptionSaltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a payload produced by Encrypt.
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	if len(data) < encryptionSaltSize {
		return nil, ErrDecryptFailed
	}
	salt, rest := data[:encryptionSaltSize], data[encryptionSaltSize:]

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrDecryptFailed
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

func (e *Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.password, salt, pbkdf2Iterations, encryptionKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
