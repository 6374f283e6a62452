package wallet

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Malformed(t *testing.T) {
	for name, in := range map[string]string{
		"not json":      `{"kty":`,
		"missing n":     `{"kty":"RSA","e":"AQAB","d":"AQ","p":"AQ","q":"AQ"}`,
		"bad base64":    `{"kty":"RSA","n":"%%%","e":"AQAB","d":"AQ","p":"AQ","q":"AQ"}`,
		"wrong kty":     `{"kty":"EC","n":"AQ","e":"AQAB","d":"AQ","p":"AQ","q":"AQ"}`,
		"missing prime": `{"kty":"RSA","n":"AQ","e":"AQAB","d":"AQ","q":"AQ"}`,
		"array":         `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			require.ErrorIs(t, err, ErrMalformedKey)
		})
	}
}

func TestWallet_JWKRoundTrip(t *testing.T) {
	w, err := Generate(1024)
	require.NoError(t, err)
	require.Len(t, w.Address(), 43)

	b, err := json.Marshal(w)
	require.NoError(t, err)

	w2, err := Parse(b)
	require.NoError(t, err)
	require.Equal(t, w.Address(), w2.Address())
	require.Equal(t, w.Owner(), w2.Owner())
	require.Equal(t, "AQAB", w2.JWK().E)

	msg := []byte("hello weave")
	sig, err := w2.Sign(msg)
	require.NoError(t, err)

	digest := sha256.Sum256(msg)
	err = rsa.VerifyPSS(w.PublicKey(), crypto.SHA256, digest[:], sig, &rsa.PSSOptions{SaltLength: PSSSaltLength})
	require.NoError(t, err)
}

func TestAddressOf(t *testing.T) {
	a := AddressOf([]byte{1, 2, 3})
	require.Equal(t, a, AddressOf([]byte{1, 2, 3}))
	require.NotEqual(t, a, AddressOf([]byte{1, 2, 4}))
}

func TestSaveLoad(t *testing.T) {
	w, err := Generate(1024)
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "keys", "wallet.json")
	written, err := Save(p, w)
	require.NoError(t, err)
	require.Equal(t, p, written)

	st, err := os.Stat(p)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	_, err = Save(p, w)
	require.Error(t, err, "must not overwrite")

	loaded, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, w.Address(), loaded.Address())

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrNoWallet)
}
