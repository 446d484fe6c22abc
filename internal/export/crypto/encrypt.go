// Package crypto encrypts backup archives with AES-256-GCM. The
// password is never stored; the archive carries only the salt and
// nonce needed to re-derive the key when the user supplies the same
// password again.
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidPassword is returned when decryption fails, which in
	// GCM almost always means a wrong password.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidArchive is returned when the encrypted payload does not
	// carry a well-formed header.
	ErrInvalidArchive = errors.New("invalid archive format")
)

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8

	saltLength       = 32
	nonceLength      = 12
	pbkdf2Iterations = 100_000
	keyLength        = 32

	headerMagic   = "CDKARCH"
	headerVersion = 1
)

// ValidatePassword checks a password against the minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLength)
	}
	return nil
}

// EncryptArchive seals data under a key derived from the password.
// Output layout: magic, version byte, salt, nonce, GCM ciphertext.
func EncryptArchive(data []byte, password string) ([]byte, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(headerMagic)
	out.WriteByte(headerVersion)
	out.Write(salt)
	out.Write(nonce)
	out.Write(gcm.Seal(nil, nonce, data, nil))
	return out.Bytes(), nil
}

// DecryptArchive opens data produced by EncryptArchive with the same
// password.
func DecryptArchive(data []byte, password string) ([]byte, error) {
	salt, nonce, ciphertext, err := splitArchive(data)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return plaintext, nil
}

// IsEncrypted reports whether data starts with the archive header.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(headerMagic))
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func splitArchive(data []byte) (salt, nonce, ciphertext []byte, err error) {
	headerLen := len(headerMagic) + 1 + saltLength + nonceLength
	if len(data) < headerLen {
		return nil, nil, nil, fmt.Errorf("%w: too short", ErrInvalidArchive)
	}
	if !bytes.HasPrefix(data, []byte(headerMagic)) {
		return nil, nil, nil, fmt.Errorf("%w: bad magic", ErrInvalidArchive)
	}
	version := data[len(headerMagic)]
	if version != headerVersion {
		return nil, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidArchive, version)
	}

	rest := data[len(headerMagic)+1:]
	salt = rest[:saltLength]
	nonce = rest[saltLength : saltLength+nonceLength]
	ciphertext = rest[saltLength+nonceLength:]
	return salt, nonce, ciphertext, nil
}
