package wallet

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ErrMalformedKey is returned when credential bytes are not a usable JWK.
var ErrMalformedKey = errors.New("malformed key file")

// PSSSaltLength matches the salt length used by the Arweave reference clients.
const PSSSaltLength = 32

// JWK is the on-disk key format (RFC 7517, RSA fields only).
type JWK struct {
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
	D   string `json:"d,omitempty"`
	P   string `json:"p,omitempty"`
	Q   string `json:"q,omitempty"`
	DP  string `json:"dp,omitempty"`
	DQ  string `json:"dq,omitempty"`
	QI  string `json:"qi,omitempty"`
}

// Wallet is a loaded identity: the RSA key and the address derived from it.
type Wallet struct {
	key     *rsa.PrivateKey
	owner   []byte
	address string
}

// Parse decodes raw key-file bytes.
func Parse(b []byte) (*Wallet, error) {
	var k JWK
	if err := json.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return FromJWK(k)
}

// FromJWK builds a Wallet from decoded JWK fields. Only decoding is
// checked here; an unsound key surfaces later as a signing failure.
func FromJWK(k JWK) (*Wallet, error) {
	if k.Kty != "" && k.Kty != "RSA" {
		return nil, fmt.Errorf("%w: unsupported kty %q", ErrMalformedKey, k.Kty)
	}
	owner, err := decodeField("n", k.N)
	if err != nil {
		return nil, err
	}
	fields := map[string]*big.Int{}
	for name, v := range map[string]string{"e": k.E, "d": k.D, "p": k.P, "q": k.Q} {
		raw, err := decodeField(name, v)
		if err != nil {
			return nil, err
		}
		fields[name] = new(big.Int).SetBytes(raw)
	}
	if !fields["e"].IsInt64() || fields["e"].Int64() > 1<<31-1 {
		return nil, fmt.Errorf("%w: exponent out of range", ErrMalformedKey)
	}

	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{
			N: new(big.Int).SetBytes(owner),
			E: int(fields["e"].Int64()),
		},
		D:      fields["d"],
		Primes: []*big.Int{fields["p"], fields["q"]},
	}
	key.Precompute()

	return &Wallet{key: key, owner: owner, address: AddressOf(owner)}, nil
}

// Generate creates a fresh RSA wallet.
func Generate(bits int) (*Wallet, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	owner := key.N.Bytes()
	return &Wallet{key: key, owner: owner, address: AddressOf(owner)}, nil
}

// AddressOf derives the public address from the raw modulus bytes.
func AddressOf(owner []byte) string {
	sum := sha256.Sum256(owner)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (w *Wallet) Address() string { return w.address }

// Owner returns the base64url modulus, the transaction "owner" field.
func (w *Wallet) Owner() string { return base64.RawURLEncoding.EncodeToString(w.owner) }

func (w *Wallet) PublicKey() *rsa.PublicKey { return &w.key.PublicKey }

// Sign produces an RSA-PSS SHA-256 signature over msg.
func (w *Wallet) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPSS(rand.Reader, w.key, crypto.SHA256, digest[:], &rsa.PSSOptions{SaltLength: PSSSaltLength})
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// JWK exports the key in its on-disk form.
func (w *Wallet) JWK() JWK {
	k := w.key
	p, q := k.Primes[0], k.Primes[1]
	one := big.NewInt(1)
	dp := new(big.Int).Mod(k.D, new(big.Int).Sub(p, one))
	dq := new(big.Int).Mod(k.D, new(big.Int).Sub(q, one))
	qi := new(big.Int).ModInverse(q, p)

	enc := func(i *big.Int) string {
		if i == nil {
			return ""
		}
		return base64.RawURLEncoding.EncodeToString(i.Bytes())
	}
	return JWK{
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(w.owner),
		E:   enc(big.NewInt(int64(k.E))),
		D:   enc(k.D),
		P:   enc(p),
		Q:   enc(q),
		DP:  enc(dp),
		DQ:  enc(dq),
		QI:  enc(qi),
	}
}

// MarshalJSON writes the wallet as a JWK document.
func (w *Wallet) MarshalJSON() ([]byte, error) { return json.Marshal(w.JWK()) }

func decodeField(name, v string) ([]byte, error) {
	if v == "" {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformedKey, name)
	}
	raw, err := decodeB64URL(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrMalformedKey, name, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty %q", ErrMalformedKey, name)
	}
	return raw, nil
}

// decodeB64URL tolerates padded input, as some exporters pad JWK fields.
func decodeB64URL(s string) ([]byte, error) {
	dec, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		dec2, err2 := base64.URLEncoding.DecodeString(s)
		if err2 != nil {
			return nil, err
		}
		return dec2, nil
	}
	return dec, nil
}
