package arweave

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

// ownerExponent is fixed by the network.
const ownerExponent = 65537

var ErrInvalidSignature = errors.New("invalid transaction signature")

// Signer is an identity able to sign transactions.
type Signer interface {
	Owner() string
	Sign(msg []byte) ([]byte, error)
}

// Tag is a decoded name/value pair. On the wire both sides are base64url.
type Tag struct {
	Name  string
	Value string
}

type wireTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTag{Name: b64(t.Name), Value: b64(t.Value)})
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	var w wireTag
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	name, err := unb64(w.Name)
	if err != nil {
		return fmt.Errorf("tag name: %w", err)
	}
	value, err := unb64(w.Value)
	if err != nil {
		return fmt.Errorf("tag value: %w", err)
	}
	t.Name, t.Value = string(name), string(value)
	return nil
}

// Base64URL is raw bytes carried as unpadded base64url in JSON.
type Base64URL []byte

func (b Base64URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

func (b *Base64URL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := unb64(s)
	if err != nil {
		return err
	}
	*b = raw
	return nil
}

// Transaction is a format 2 data transaction.
type Transaction struct {
	Format    int       `json:"format"`
	ID        string    `json:"id"`
	LastTx    string    `json:"last_tx"`
	Owner     string    `json:"owner"`
	Tags      []Tag     `json:"tags"`
	Target    string    `json:"target"`
	Quantity  string    `json:"quantity"`
	Data      Base64URL `json:"data"`
	DataSize  string    `json:"data_size"`
	DataRoot  string    `json:"data_root"`
	Reward    string    `json:"reward"`
	Signature string    `json:"signature"`
}

// NewTransaction creates an unsigned data transaction. Anchor and reward
// are filled by Client.Prepare.
func NewTransaction(data []byte, tags ...Tag) *Transaction {
	tx := &Transaction{
		Format:   2,
		Tags:     append([]Tag{}, tags...),
		Quantity: "0",
		Reward:   "0",
		Data:     data,
		DataSize: strconv.Itoa(len(data)),
	}
	if len(data) > 0 {
		tx.DataRoot = base64.RawURLEncoding.EncodeToString(DataRoot(data))
	}
	return tx
}

// AddTag appends a tag.
func (tx *Transaction) AddTag(name, value string) {
	tx.Tags = append(tx.Tags, Tag{Name: name, Value: value})
}

// TagValue returns the first value for name.
func (tx *Transaction) TagValue(name string) (string, bool) {
	for _, t := range tx.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}

// SignatureData is the deep hash the owner signs.
func (tx *Transaction) SignatureData() ([]byte, error) {
	fields := map[string]string{
		"owner":     tx.Owner,
		"target":    tx.Target,
		"last_tx":   tx.LastTx,
		"data_root": tx.DataRoot,
	}
	raw := make(map[string][]byte, len(fields))
	for name, v := range fields {
		b, err := unb64(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		raw[name] = b
	}

	tags := make([]any, 0, len(tx.Tags))
	for _, t := range tx.Tags {
		tags = append(tags, []any{[]byte(t.Name), []byte(t.Value)})
	}

	return deepHash([]any{
		[]byte(strconv.Itoa(tx.Format)),
		raw["owner"],
		raw["target"],
		[]byte(tx.Quantity),
		[]byte(tx.Reward),
		raw["last_tx"],
		tags,
		[]byte(tx.DataSize),
		raw["data_root"],
	}), nil
}

// Sign sets owner, signature and id.
func (tx *Transaction) Sign(s Signer) error {
	tx.Owner = s.Owner()
	msg, err := tx.SignatureData()
	if err != nil {
		return fmt.Errorf("signature data: %w", err)
	}
	sig, err := s.Sign(msg)
	if err != nil {
		return err
	}
	id := sha256.Sum256(sig)
	tx.Signature = base64.RawURLEncoding.EncodeToString(sig)
	tx.ID = base64.RawURLEncoding.EncodeToString(id[:])
	return nil
}

// Verify checks the id, the signature and, when data is attached, that
// data_size and data_root commit to it.
func (tx *Transaction) Verify() error {
	sig, err := unb64(tx.Signature)
	if err != nil || len(sig) == 0 {
		return fmt.Errorf("%w: bad signature encoding", ErrInvalidSignature)
	}
	id := sha256.Sum256(sig)
	if base64.RawURLEncoding.EncodeToString(id[:]) != tx.ID {
		return fmt.Errorf("%w: id does not match signature", ErrInvalidSignature)
	}
	if len(tx.Data) > 0 {
		if tx.DataSize != strconv.Itoa(len(tx.Data)) {
			return fmt.Errorf("%w: data_size mismatch", ErrInvalidSignature)
		}
		root, err := unb64(tx.DataRoot)
		if err != nil || !bytes.Equal(root, DataRoot(tx.Data)) {
			return fmt.Errorf("%w: data_root mismatch", ErrInvalidSignature)
		}
	}
	owner, err := unb64(tx.Owner)
	if err != nil || len(owner) == 0 {
		return fmt.Errorf("%w: bad owner", ErrInvalidSignature)
	}
	msg, err := tx.SignatureData()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	pub := &rsa.PublicKey{N: new(big.Int).SetBytes(owner), E: ownerExponent}
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// OwnerAddress derives the address of the signing wallet.
func (tx *Transaction) OwnerAddress() (string, error) {
	owner, err := unb64(tx.Owner)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(owner)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func b64(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func unb64(s string) ([]byte, error) {
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
