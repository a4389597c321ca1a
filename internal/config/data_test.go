package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadExtensions(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeDataFile(t, "extensions.json",
			`[{"id": "101", "name": "Sales"}, {"id": "102", "name": "Support"}]`)

		extensions, err := LoadExtensions(path)
		if err != nil {
			t.Fatalf("LoadExtensions: %v", err)
		}
		if len(extensions) != 2 {
			t.Fatalf("got %d extensions, want 2", len(extensions))
		}
		if extensions[0].ID != "101" || extensions[0].Name != "Sales" {
			t.Errorf("unexpected first extension %+v", extensions[0])
		}
	})

	t.Run("missing id rejected", func(t *testing.T) {
		path := writeDataFile(t, "extensions.json", `[{"name": "Sales"}]`)
		if _, err := LoadExtensions(path); err == nil {
			t.Fatal("expected validation error for missing id")
		}
	})

	t.Run("empty array rejected", func(t *testing.T) {
		path := writeDataFile(t, "extensions.json", `[]`)
		if _, err := LoadExtensions(path); err == nil {
			t.Fatal("expected validation error for empty array")
		}
	})

	t.Run("malformed JSON rejected", func(t *testing.T) {
		path := writeDataFile(t, "extensions.json", `{"id": "101"`)
		if _, err := LoadExtensions(path); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadExtensions(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestLoadLeadOwners(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeDataFile(t, "lead_owners.json",
			`[{"id": "9001", "name": "Alice Ray", "email": "alice@example.com"}]`)

		owners, err := LoadLeadOwners(path)
		if err != nil {
			t.Fatalf("LoadLeadOwners: %v", err)
		}
		if len(owners) != 1 {
			t.Fatalf("got %d owners, want 1", len(owners))
		}
		if owners[0].ID != "9001" || owners[0].Name != "Alice Ray" {
			t.Errorf("unexpected owner %+v", owners[0])
		}
	})

	t.Run("missing name rejected", func(t *testing.T) {
		path := writeDataFile(t, "lead_owners.json", `[{"id": "9001"}]`)
		if _, err := LoadLeadOwners(path); err == nil {
			t.Fatal("expected validation error for missing name")
		}
	})
}

func TestWriteExampleData(t *testing.T) {
	tmpDir := t.TempDir()
	extPath := filepath.Join(tmpDir, "extensions.json")
	ownersPath := filepath.Join(tmpDir, "lead_owners.json")

	if err := WriteExampleData(extPath, ownersPath); err != nil {
		t.Fatalf("WriteExampleData: %v", err)
	}

	// Both files load back through the validating loaders.
	if _, err := LoadExtensions(extPath); err != nil {
		t.Errorf("example extensions do not validate: %v", err)
	}
	owners, err := LoadLeadOwners(ownersPath)
	if err != nil {
		t.Fatalf("example owners do not validate: %v", err)
	}

	// A second write keeps existing files intact.
	if err := os.WriteFile(ownersPath, []byte(`[{"id": "x", "name": "Kept"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteExampleData(extPath, ownersPath); err != nil {
		t.Fatalf("WriteExampleData second run: %v", err)
	}
	owners, err = LoadLeadOwners(ownersPath)
	if err != nil {
		t.Fatalf("LoadLeadOwners after rewrite: %v", err)
	}
	if len(owners) != 1 || owners[0].Name != "Kept" {
		t.Errorf("existing data file was overwritten: %+v", owners)
	}
}
