// Package auth provides token issuance and verification, password hashing
// and key management.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// KeyFileName is the name of the symmetric key file inside the data directory.
const KeyFileName = "auth.key"

// keyLength is the PASETO v4 symmetric key size in bytes.
const keyLength = 32

// LoadOrGenerateKey returns the 32-byte token key stored hex-encoded in
// <dataPath>/auth.key, creating the file with mode 0600 on first run.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, KeyFileName)

	raw, err := os.ReadFile(keyPath) //#nosec G304 -- path is derived from the configured data directory
	switch {
	case err == nil:
		return decodeKey(strings.TrimSpace(string(raw)))
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("save auth key: %w", err)
	}
	return key, nil
}

func decodeKey(keyHex string) ([]byte, error) {
	if len(keyHex) != keyLength*2 {
		return nil, fmt.Errorf("invalid auth key length: expected %d hex chars, got %d", keyLength*2, len(keyHex))
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid auth key format: not valid hex: %w", err)
	}
	return key, nil
}
