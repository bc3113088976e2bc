// Package keystore holds the login-time CredentialStore named in
// spec.md §6 ("CredentialStore.load() → keystore, invoked only during
// login, outside the pipeline"): an Argon2id + AES-256-GCM encrypted
// mnemonic at rest, plus an NDJSON audit trail of load attempts,
// adapted from the teacher's crypto/encryption.go and
// services/audit/logger.go.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time    = 4
	argon2Memory  = 256 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
	aesNonceLen   = 12
)

// EncryptedMnemonic is a mnemonic at rest: Argon2id-derived key,
// AES-256-GCM sealed.
type EncryptedMnemonic struct {
	Salt          []byte
	Nonce         []byte
	Ciphertext    []byte // includes the 16-byte GCM authentication tag
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
	Version       uint8
}

// clearBytes zeros b in place so sensitive material doesn't linger in
// memory after use; runtime.KeepAlive stops the compiler from
// eliding the zeroing as a dead store.
func clearBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// EncryptMnemonic seals mnemonic under password using Argon2id (OWASP
// parameters) to derive an AES-256-GCM key.
func EncryptMnemonic(mnemonic, password string) (*EncryptedMnemonic, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keystore: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keystore: new GCM: %w", err)
	}

	nonce := make([]byte, aesNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: generate nonce: %w", err)
	}

	plaintext := []byte(mnemonic)
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	clearBytes(plaintext)

	return &EncryptedMnemonic{
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
		Argon2Time:    argon2Time,
		Argon2Memory:  argon2Memory,
		Argon2Threads: argon2Threads,
		Version:       1,
	}, nil
}

// DecryptMnemonic reverses EncryptMnemonic, returning an error that
// deliberately does not distinguish "wrong password" from "corrupted
// data" to avoid leaking an oracle.
func DecryptMnemonic(enc *EncryptedMnemonic, password string) (string, error) {
	if enc == nil {
		return "", errors.New("keystore: encrypted mnemonic is nil")
	}
	if len(enc.Salt) != argon2SaltLen {
		return "", fmt.Errorf("keystore: invalid salt length: got %d, want %d", len(enc.Salt), argon2SaltLen)
	}
	if len(enc.Nonce) != aesNonceLen {
		return "", fmt.Errorf("keystore: invalid nonce length: got %d, want %d", len(enc.Nonce), aesNonceLen)
	}

	key := argon2.IDKey([]byte(password), enc.Salt, enc.Argon2Time, enc.Argon2Memory, enc.Argon2Threads, argon2KeyLen)
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("keystore: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("keystore: new GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, enc.Nonce, enc.Ciphertext, nil)
	if err != nil {
		return "", errors.New("keystore: authentication failed: wrong password or corrupted data")
	}
	defer clearBytes(plaintext)
	return string(plaintext), nil
}

// Serialize packs an EncryptedMnemonic into its on-disk wire format:
// [version:1][time:4][memory:4][threads:1][salt:16][nonce:12][ciphertext:...].
func Serialize(enc *EncryptedMnemonic) []byte {
	size := 1 + 4 + 4 + 1 + len(enc.Salt) + len(enc.Nonce) + len(enc.Ciphertext)
	out := make([]byte, size)
	offset := 0

	out[offset] = enc.Version
	offset++
	binary.BigEndian.PutUint32(out[offset:], enc.Argon2Time)
	offset += 4
	binary.BigEndian.PutUint32(out[offset:], enc.Argon2Memory)
	offset += 4
	out[offset] = enc.Argon2Threads
	offset++
	offset += copy(out[offset:], enc.Salt)
	offset += copy(out[offset:], enc.Nonce)
	copy(out[offset:], enc.Ciphertext)

	return out
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (*EncryptedMnemonic, error) {
	minSize := 1 + 4 + 4 + 1 + argon2SaltLen + aesNonceLen
	if len(data) < minSize {
		return nil, fmt.Errorf("keystore: encrypted data too short: %d bytes, want at least %d", len(data), minSize)
	}

	offset := 0
	version := data[offset]
	offset++
	t := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	mem := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	threads := data[offset]
	offset++

	salt := make([]byte, argon2SaltLen)
	copy(salt, data[offset:offset+argon2SaltLen])
	offset += argon2SaltLen

	nonce := make([]byte, aesNonceLen)
	copy(nonce, data[offset:offset+aesNonceLen])
	offset += aesNonceLen

	ciphertext := make([]byte, len(data)-offset)
	copy(ciphertext, data[offset:])

	return &EncryptedMnemonic{
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
		Argon2Time:    t,
		Argon2Memory:  mem,
		Argon2Threads: threads,
		Version:       version,
	}, nil
}
