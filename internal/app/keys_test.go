package app

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeKey(t *testing.T) {
	raw := []byte{0x01, 0x02, 0xfe, 0xff}

	decoded, err := DecodeKey(hex.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	decoded, err = DecodeKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	_, err = DecodeKey("   ")
	require.Error(t, err)
}

func TestSigningKeysFromSeed(t *testing.T) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	priv, pub, err := SigningKeys(TokenSettings{
		PrivateKey: hex.EncodeToString(private.Seed()),
	})
	require.NoError(t, err)
	require.Equal(t, private, priv)
	require.Equal(t, private.Public(), pub)
}

func TestSigningKeysFullPrivateKey(t *testing.T) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	priv, pub, err := SigningKeys(TokenSettings{
		PrivateKey: base64.StdEncoding.EncodeToString(private),
		PublicKey:  hex.EncodeToString(public),
	})
	require.NoError(t, err)
	require.Equal(t, private, priv)
	require.Equal(t, public, pub)
}

func TestSigningKeysPublicOnly(t *testing.T) {
	public, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	priv, pub, err := SigningKeys(TokenSettings{
		PublicKey: hex.EncodeToString(public),
	})
	require.NoError(t, err)
	require.Nil(t, priv)
	require.Equal(t, public, pub)
}

func TestSigningKeysRejectsBadLengths(t *testing.T) {
	_, _, err := SigningKeys(TokenSettings{PrivateKey: hex.EncodeToString([]byte("short"))})
	require.Error(t, err)

	_, _, err = SigningKeys(TokenSettings{})
	require.Error(t, err)
}
