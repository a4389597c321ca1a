package runtime

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwhitford/ringlead/internal/config"
)

func TestBuild(t *testing.T) {
	os.Setenv("TEST_RUNTIME_JWT", "jwt-123")
	defer os.Unsetenv("TEST_RUNTIME_JWT")

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	configContent := `
pbx:
  account_id: "acct-1"
  jwt: "${TEST_RUNTIME_JWT}"
crm:
  refresh_token: "refresh-1"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cm, err := config.NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := Build(cm, logger)

	if svc.Source == nil {
		t.Fatal("expected a PBX client")
	}
	if svc.Store == nil {
		t.Fatal("expected a CRM client")
	}
	if svc.ConfigManager != cm {
		t.Error("expected the manager to be carried along")
	}
	if svc.Logger != logger {
		t.Error("expected the logger to be carried along")
	}
}
