package main

import (
	"os"
	"testing"
)

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	os.Unsetenv("SLOTLINE_STATE_DIR")
	os.Unsetenv("STORE_BACKEND")
	os.Unsetenv("CHANNEL")

	config := loadEnvironmentConfig()

	if config.StateDir != DefaultStateDir {
		t.Errorf("Expected default state dir %q, got %q", DefaultStateDir, config.StateDir)
	}
	if config.StoreBackend != "memory" {
		t.Errorf("Expected default store backend memory, got %q", config.StoreBackend)
	}
	if config.Channel != "cloud" {
		t.Errorf("Expected default channel cloud, got %q", config.Channel)
	}
}

func TestLoadEnvironmentConfigOverrides(t *testing.T) {
	os.Setenv("SLOTLINE_STATE_DIR", "/tmp/slotline_test")
	os.Setenv("STORE_BACKEND", "redis")
	os.Setenv("REDIS_URL", "redis://localhost:6379/1")
	os.Setenv("CHANNEL", "twilio")
	defer func() {
		os.Unsetenv("SLOTLINE_STATE_DIR")
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("CHANNEL")
	}()

	config := loadEnvironmentConfig()

	if config.StateDir != "/tmp/slotline_test" {
		t.Errorf("Expected custom state dir, got %q", config.StateDir)
	}
	if config.StoreBackend != "redis" || config.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("Redis configuration not carried: %+v", config)
	}
	if config.Channel != "twilio" {
		t.Errorf("Expected twilio channel, got %q", config.Channel)
	}
}

func TestBuildStoreDefaultsToMemory(t *testing.T) {
	backend := "memory"
	dsn := ""
	redisURL := ""
	flags := Flags{storeBackend: &backend, dbDSN: &dsn, redisURL: &redisURL}

	st, err := buildStore(flags)
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	if st == nil {
		t.Fatal("expected a store instance")
	}
}

func TestBuildAPIOptions(t *testing.T) {
	addr := ":9090"
	debug := true
	flags := Flags{apiAddr: &addr, debug: &debug}

	opts := buildAPIOptions(flags)
	if len(opts) != 2 {
		t.Errorf("Expected 2 API options, got %d", len(opts))
	}

	empty := ""
	noDebug := false
	flags = Flags{apiAddr: &empty, debug: &noDebug}
	if opts := buildAPIOptions(flags); len(opts) != 0 {
		t.Errorf("Expected 0 API options, got %d", len(opts))
	}
}
