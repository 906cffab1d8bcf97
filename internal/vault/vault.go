// Package vault encrypts notification channel secrets at rest.
//
// The default key is generated at process start and never written anywhere, so
// ciphertext from a previous run cannot be decrypted after a restart. A
// PassphraseKey derives a stable key from an operator supplied secret instead.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize   = 32
	delimiter = ":"
)

// KeyProvider supplies the symmetric key once, at vault construction.
type KeyProvider interface {
	Key() ([]byte, error)
}

// EphemeralKey yields a fresh random key that only lives in memory.
type EphemeralKey struct{}

func (EphemeralKey) Key() ([]byte, error) {
	k := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

// PassphraseKey derives the key from Secret with HKDF-SHA256.
type PassphraseKey struct {
	Secret string
	Salt   string
}

func (p PassphraseKey) Key() ([]byte, error) {
	if p.Secret == "" {
		return nil, errors.New("vault secret is empty")
	}
	salt := p.Salt
	if salt == "" {
		salt = "uptimewatch-vault"
	}
	r := hkdf.New(sha256.New, []byte(p.Secret), []byte(salt), []byte("notification-secrets"))
	k := make([]byte, keySize)
	if _, err := io.ReadFull(r, k); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return k, nil
}

type Vault struct {
	block cipher.Block
	rand  io.Reader
}

func New(p KeyProvider) (*Vault, error) {
	if p == nil {
		p = EphemeralKey{}
	}
	key, err := p.Key()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	return &Vault{block: block, rand: rand.Reader}, nil
}

// Encrypt returns "<ivHex>:<cipherHex>" using AES-CBC with a fresh IV per call.
// The empty string is returned unchanged.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(v.rand, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(v.block, iv).CryptBlocks(out, padded)
	return hex.EncodeToString(iv) + delimiter + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Text without the delimiter is treated as plaintext
// and returned unchanged. Malformed or undecryptable text yields "".
func (v *Vault) Decrypt(text string) string {
	ivHex, body, ok := strings.Cut(text, delimiter)
	if !ok {
		return text
	}
	plain, err := v.open(ivHex, body)
	if err != nil {
		return ""
	}
	return string(plain)
}

func (v *Vault) open(ivHex, body string) ([]byte, error) {
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.New("bad iv length")
	}
	data, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("bad ciphertext length")
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(v.block, iv).CryptBlocks(out, data)
	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	// secrets are text; a wrong key passes the padding check now and then
	if !utf8.Valid(plain) {
		return nil, errors.New("plaintext is not utf-8")
	}
	return plain, nil
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("empty block")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
