package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var errShortCiphertext = errors.New("ciphertext shorter than nonce")

func newGCM() (cipher.AEAD, error) {
	config := GetConfig()

	key, err := base64.StdEncoding.DecodeString(config.AgentCRKey)
	if err != nil {
		return nil, fmt.Errorf("decode credentials key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	return cipher.NewGCM(block)
}

// EncryptString seals a credential for storage. Output is base64 of
// nonce||ciphertext.
func EncryptString(plaintext string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens a credential produced by EncryptString.
func DecryptString(encoded string) (string, error) {
	gcm, err := newGCM()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	if len(raw) < gcm.NonceSize() {
		return "", errShortCiphertext
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}

	return string(plaintext), nil
}
