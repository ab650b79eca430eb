package main

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenKey(t *testing.T) {
	out, err := run(t, "gen-key", "--bytes", "48")
	if err != nil {
		t.Fatalf("gen-key: %v", err)
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("output is not base64: %q", out)
	}
	if len(key) != 48 {
		t.Errorf("key length = %d, want 48", len(key))
	}

	again, _ := run(t, "gen-key")
	if again == out {
		t.Error("two keys should differ")
	}
}

func TestGenKey_RejectsShortKeys(t *testing.T) {
	if _, err := run(t, "gen-key", "--bytes", "8"); err == nil {
		t.Fatal("expected an error for an 8-byte key")
	}
}

func TestSetupAdmin_RequiresPhone(t *testing.T) {
	t.Setenv("TESTIMONYHUB_SUPERADMIN_PHONE", "")
	_, err := run(t, "setup-admin")
	if err == nil || !strings.Contains(err.Error(), "--phone") {
		t.Fatalf("expected a missing phone error, got %v", err)
	}
}

func TestAppConfigFromEnv(t *testing.T) {
	t.Setenv("TESTIMONYHUB_STORAGE_TYPE", "s3")
	t.Setenv("TESTIMONYHUB_STORAGE_S3_BUCKET", "media")
	t.Setenv("TESTIMONYHUB_BLOB_RECONCILE_GRACE", "2h")
	t.Setenv("TESTIMONYHUB_PHONE_COUNTRY_CODE", "")

	cfg := appConfig()
	if cfg.StorageType != "s3" || cfg.StorageS3Bucket != "media" {
		t.Errorf("storage = %s/%s", cfg.StorageType, cfg.StorageS3Bucket)
	}
	if cfg.BlobReconcileGrace != 2*time.Hour {
		t.Errorf("grace = %v", cfg.BlobReconcileGrace)
	}
	if cfg.PhoneCountryCode != "232" {
		t.Errorf("blank env should fall back to the default, got %q", cfg.PhoneCountryCode)
	}
}
