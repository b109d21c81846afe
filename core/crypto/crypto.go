// Package crypto implements the key-stretching and symmetric encryption
// scheme shared with the browser client. The client derives the same
// strengthened key from the same seed, so Iterations, KeySize and the
// process-wide salt must not change independently of the frontend.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations and KeySize must match the frontend's PBKDF2 parameters.
	Iterations = 10000
	KeySize    = 32 // 256-bit key
)

// Cipher performs key derivation and reversible encryption of opaque string
// payloads. The salt and app secret are read-only process-wide configuration.
type Cipher struct {
	salt      []byte
	appSecret string
}

func New(salt, appSecret string) *Cipher {
	return &Cipher{salt: []byte(salt), appSecret: appSecret}
}

// StrengthenKey stretches a low-entropy seed into a hex-encoded 256-bit key.
// SHA-1 is what the client library uses for its PBKDF2 PRF; it stays SHA-1
// here for byte-for-byte compatibility, not because it is a good choice.
func (c *Cipher) StrengthenKey(seed string) string {
	key := pbkdf2.Key([]byte(seed), c.salt, Iterations, KeySize, sha1.New)
	return hex.EncodeToString(key)
}

// Encrypt encrypts plaintext under a key strengthened from seed, returning a
// base64(nonce||ciphertext) string. Empty plaintext yields an empty string by
// contract, not an error.
func (c *Cipher) Encrypt(plaintext, seed string) string {
	if plaintext == "" {
		return ""
	}
	aead, err := c.aead(seed)
	if err != nil {
		return ""
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return ""
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Any failure (malformed input, wrong key, or a
// result that is not valid UTF-8) yields an empty string rather than an
// error. Callers must treat "" as "decryption failed" and apply their own
// empty-input validation before calling.
func (c *Cipher) Decrypt(ciphertext, seed string) string {
	if ciphertext == "" {
		return ""
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return ""
	}
	aead, err := c.aead(seed)
	if err != nil {
		return ""
	}
	if len(raw) < aead.NonceSize() {
		return ""
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ""
	}
	if !utf8.Valid(plaintext) {
		return ""
	}
	return string(plaintext)
}

func (c *Cipher) aead(seed string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(c.StrengthenKey(seed))
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// UserEncryptionKey composes the per-user seed the client encrypts with once
// it knows the user's id. Low entropy and guessable; kept for compatibility
// with the deployed clients.
func (c *Cipher) UserEncryptionKey(userID int64, email string) string {
	return fmt.Sprintf("pwd-manager-%d-%s-%s", userID, email, c.appSecret)
}

// TempEncryptionKey composes the registration-time seed, used before a user
// id exists.
func (c *Cipher) TempEncryptionKey(email string) string {
	return fmt.Sprintf("pwd-manager-temp-%s-%s", email, c.appSecret)
}
