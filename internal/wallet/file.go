package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const walletFileName = "wallet.json"

// ErrNoWallet is returned when no key file exists at the resolved path.
var ErrNoWallet = errors.New("no wallet found")

// Dir is the per-user state directory (~/.weavetodo).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".weavetodo"), nil
}

// DefaultPath is where `wallet new` writes and where Load looks by default.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, walletFileName), nil
}

// Resolve picks the explicit path if set, otherwise the default one.
func Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandHome(path)
	}
	return DefaultPath()
}

// Load reads and parses a key file.
func Load(path string) (*Wallet, error) {
	p, err := Resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoWallet, p)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	w, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	return w, nil
}

// Save writes the key owner-only. It refuses to overwrite an existing file.
func Save(path string, w *Wallet) (string, error) {
	p, err := Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err == nil {
		return "", fmt.Errorf("write wallet: %s already exists", p)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(w.JWK(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	return p, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
