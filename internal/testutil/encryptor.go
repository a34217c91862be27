package testutil

import (
	"wam-go/internal/encryption"
	"wam-go/internal/wam"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() wam.Encryptor {
	return encryption.NewTestEncryptor()
}
