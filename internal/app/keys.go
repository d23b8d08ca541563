package app

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeKey decodes a key from hex or base64 encoding to raw bytes.
// It tries hex first (since runtime defaults use hex), then base64 variants.
// If all decoding attempts fail, it treats the input as raw bytes.
func DecodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("key value is empty")
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return decoded, nil
		}
	}

	// Support both standard and raw base64 encodings
	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}

	// Fallback to treating as raw bytes
	return []byte(v), nil
}

// SigningKeys resolves the configured token keys into an Ed25519 key pair.
// The private key accepts either a 32-byte seed or the full 64-byte key; the
// public key is derived from the private key when not set explicitly.
func SigningKeys(settings TokenSettings) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	var private ed25519.PrivateKey

	if strings.TrimSpace(settings.PrivateKey) != "" {
		raw, err := DecodeKey(settings.PrivateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("decode private key: %w", err)
		}
		switch len(raw) {
		case ed25519.SeedSize:
			private = ed25519.NewKeyFromSeed(raw)
		case ed25519.PrivateKeySize:
			private = ed25519.PrivateKey(raw)
		default:
			return nil, nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
				ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
		}
	}

	var public ed25519.PublicKey
	if strings.TrimSpace(settings.PublicKey) != "" {
		raw, err := DecodeKey(settings.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("decode public key: %w", err)
		}
		if len(raw) != ed25519.PublicKeySize {
			return nil, nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		public = ed25519.PublicKey(raw)
	} else if private != nil {
		public = private.Public().(ed25519.PublicKey)
	}

	if private == nil && public == nil {
		return nil, nil, fmt.Errorf("no token signing keys configured")
	}

	return private, public, nil
}
