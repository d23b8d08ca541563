package app

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no
// configuration file is supplied. It returns a map describing which keys were
// generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.Tokens.PrivateKey) == "" {
		// Ephemeral keys invalidate outstanding credentials on restart;
		// production deployments should configure a persistent key.
		_, private, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate token signing key: %w", err)
		}
		cfg.Auth.Tokens.PrivateKey = hex.EncodeToString(private.Seed())
		cfg.Auth.Tokens.PublicKey = hex.EncodeToString(private.Public().(ed25519.PublicKey))
		generated["auth.tokens.private_key"] = true
	}

	return generated, nil
}
