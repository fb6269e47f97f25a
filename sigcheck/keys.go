package sigcheck

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tink-crypto/tink-go/v2/keyset"
)

// ReadPublicKeyset reads a binary keyset that holds no secrets.
func ReadPublicKeyset(name string) (*keyset.Handle, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := keyset.ReadWithNoSecrets(keyset.NewBinaryReader(f))
	if err != nil {
		return nil, fmt.Errorf("sigcheck: read %s: %w", name, err)
	}
	return h, nil
}

// WritePublicKeyset writes the public half of h.
func WritePublicKeyset(h *keyset.Handle, name string) error {
	pub, err := h.Public()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := pub.WriteWithNoSecrets(keyset.NewBinaryWriter(f)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AddSignerDir trusts every public keyset in dir, using file names as
// signer ids.
func (v *Verifier) AddSignerDir(dir string) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		h, err := ReadPublicKeyset(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if err := v.AddSigner([]byte(e.Name()), h); err != nil {
			return err
		}
	}
	return nil
}
