package config

import (
	"bytes"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"APP_ENV": "dev"}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != ":8080" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.SlotRetention != 48*time.Hour {
		t.Errorf("retention = %v", cfg.SlotRetention)
	}
	if len(cfg.SlotLabels) != len(DefaultSlotLabels) {
		t.Errorf("labels = %v", cfg.SlotLabels)
	}
	if string(cfg.JwtSecret) == "" {
		t.Error("dev mode should fall back to a secret")
	}
}

func TestFromEnvRequiresSecretInProd(t *testing.T) {
	if _, err := FromEnv(env(map[string]string{})); err == nil {
		t.Fatal("expected missing JWT_SECRET to fail")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                "9000",
		"JWT_SECRET":          "s3cret",
		"SLOT_LABELS":         "10:00 AM, 10:30 AM,,11:00 AM",
		"SLOT_RETENTION":      "72h",
		"CUSTOMER_MAY_CANCEL": "true",
		"SUBSCRIBER_BUFFER":   "8",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != ":9000" {
		t.Errorf("port = %q", cfg.Port)
	}
	if len(cfg.SlotLabels) != 3 || cfg.SlotLabels[1] != "10:30 AM" {
		t.Errorf("labels = %v", cfg.SlotLabels)
	}
	if cfg.SlotRetention != 72*time.Hour || !cfg.CustomerMayCancel || cfg.SubscriberBuffer != 8 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestPassSecretIsNotTheJwtSecret(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "s3cret"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.PassSecret) == 0 || bytes.Equal(cfg.PassSecret, cfg.JwtSecret) {
		t.Fatalf("pass secret %x must be set and differ from the JWT secret", cfg.PassSecret)
	}
	again, _ := FromEnv(env(map[string]string{"JWT_SECRET": "s3cret"}))
	if !bytes.Equal(again.PassSecret, cfg.PassSecret) {
		t.Error("derived pass secret must be stable across restarts")
	}

	cfg, err = FromEnv(env(map[string]string{"JWT_SECRET": "s3cret", "PASS_SECRET": "p4ss"}))
	if err != nil {
		t.Fatal(err)
	}
	if string(cfg.PassSecret) != "p4ss" {
		t.Errorf("PASS_SECRET ignored: %q", cfg.PassSecret)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	bad := []map[string]string{
		{"JWT_SECRET": "x", "SLOT_RETENTION": "soon"},
		{"JWT_SECRET": "x", "BOOKING_RATE_PER_MIN": "-1"},
		{"JWT_SECRET": "x", "CUSTOMER_MAY_CANCEL": "maybe"},
		{"JWT_SECRET": "x", "SLOT_LABELS": " , "},
	}
	for _, m := range bad {
		if _, err := FromEnv(env(m)); err == nil {
			t.Errorf("expected error for %v", m)
		}
	}
}
