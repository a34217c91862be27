package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"wam-go/internal/wam"
)

// bundleMagic opens every stream written by TestEncryptor.
var bundleMagic = []byte("WAMENC\x00\x01")

// scrambleMask is XORed into every payload byte.
const scrambleMask = 0x5a

// TestEncryptor scrambles bundles with a fixed mask behind bundleMagic, so
// tests can tell an encrypted upload from a plain one without age keys. It
// always reports itself configured.
type TestEncryptor struct {
	passphrase string
}

var _ wam.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup remembers the passphrase; no key is generated.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(bundleMagic); err != nil {
		return fmt.Errorf("writing bundle magic: %w", err)
	}
	return scramble(r, w)
}

func (e *TestEncryptor) Unlock(passphrase string) (wam.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext reverses TestEncryptor.
type TestDecryptionContext struct{}

var _ wam.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	magic := make([]byte, len(bundleMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("reading bundle magic: %w", err)
	}
	if !bytes.Equal(magic, bundleMagic) {
		return errors.New("not a test-encrypted bundle")
	}
	return scramble(r, w)
}

// scramble copies r to w with every byte XORed by scrambleMask.
func scramble(r io.Reader, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := range buf[:n] {
				buf[i] ^= scrambleMask
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing bundle: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading bundle: %w", err)
		}
	}
}
