package vault

import (
	"context"
	"testing"

	"wam-go/internal/config"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"wam", "wam/"},
		{"wam/", "wam/"},
		{"/team/wam/", "team/wam/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizePrefix(tt.in); got != tt.want {
				t.Errorf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewS3Vault(t *testing.T) {
	v, err := NewS3Vault(context.Background(), config.VaultConfig{
		Type:        "s3",
		Name:        "offsite",
		S3Bucket:    "configs",
		S3Prefix:    "wam",
		S3Region:    "us-east-1",
		S3Endpoint:  "http://127.0.0.1:9000",
		S3AccessKey: "AKIA",
		S3SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}
	if got := v.objectKey("acct/x.tar.zst"); got != "wam/acct/x.tar.zst" {
		t.Errorf("objectKey() = %q", got)
	}
	if err := v.PutBundle("../x", nil, 0); err == nil {
		t.Error("PutBundle() expected error for escaping key")
	}
}
