package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PBX.ServerURL != "https://platform.ringcentral.com" {
		t.Errorf("unexpected PBX server url %s", cfg.PBX.ServerURL)
	}
	if cfg.PBX.PerPage != 250 {
		t.Errorf("expected per_page 250, got %d", cfg.PBX.PerPage)
	}
	if cfg.PBX.JWT != "${RINGCENTRAL_JWT}" {
		t.Error("expected JWT placeholder")
	}
	if cfg.CRM.RefreshToken != "${ZOHO_REFRESH_TOKEN}" {
		t.Error("expected refresh token placeholder")
	}
	if cfg.Sync.HoursBack != 24 {
		t.Errorf("expected 24 hour lookback, got %d", cfg.Sync.HoursBack)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_JWT", "secret123")
		defer os.Unsetenv("TEST_JWT")

		result := ResolveEnvVars("${TEST_JWT}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_Resolved(t *testing.T) {
	os.Setenv("TEST_RC_JWT", "jwt-abc")
	os.Setenv("TEST_ZOHO_REFRESH", "refresh-xyz")
	defer os.Unsetenv("TEST_RC_JWT")
	defer os.Unsetenv("TEST_ZOHO_REFRESH")

	cfg := DefaultConfig()
	cfg.PBX.JWT = "${TEST_RC_JWT}"
	cfg.PBX.ClientID = "literal-client"
	cfg.CRM.RefreshToken = "${TEST_ZOHO_REFRESH}"

	pbx := cfg.ResolvedPBX()
	if pbx.JWT != "jwt-abc" {
		t.Errorf("expected jwt-abc, got %s", pbx.JWT)
	}
	if pbx.ClientID != "literal-client" {
		t.Errorf("expected literal-client, got %s", pbx.ClientID)
	}
	// The underlying config is untouched.
	if cfg.PBX.JWT != "${TEST_RC_JWT}" {
		t.Error("ResolvedPBX mutated the config")
	}

	crm := cfg.ResolvedCRM()
	if crm.RefreshToken != "refresh-xyz" {
		t.Errorf("expected refresh-xyz, got %s", crm.RefreshToken)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
pbx:
  account_id: "12345"
sync:
  hours_back: 6
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.PBX.AccountID != "12345" {
			t.Errorf("expected account id 12345, got %s", cfg.PBX.AccountID)
		}
		if cfg.Sync.HoursBack != 6 {
			t.Errorf("expected hours_back 6, got %d", cfg.Sync.HoursBack)
		}
		// Unset keys fall back to defaults.
		if cfg.CRM.AccountsURL != "https://accounts.zoho.com" {
			t.Errorf("expected default accounts url, got %s", cfg.CRM.AccountsURL)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty config file written")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	if mgr.Get().PBX.PerPage != 250 {
		t.Errorf("round-tripped per_page = %d", mgr.Get().PBX.PerPage)
	}
}
