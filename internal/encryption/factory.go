package encryption

import (
	"fmt"

	"wam-go/internal/config"
	"wam-go/internal/wam"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: bundles are pushed in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (wam.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
