package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/lemon/internal/config"
)

func TestReadConfigFileWithoutPathKeepsDefaults(t *testing.T) {
	v := config.NewViper()
	if err := readConfigFile(v, ""); err != nil {
		t.Fatalf("expected no error without a config path, got %v", err)
	}
	if driver := v.GetString("storage.driver"); driver != config.StorageDriverDirectory {
		t.Fatalf("expected default storage driver, got %q", driver)
	}
}

func TestReadConfigFileLoadsExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lemon.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	v := config.NewViper()
	if err := readConfigFile(v, path); err != nil {
		t.Fatalf("read config: %v", err)
	}
	if driver := v.GetString("storage.driver"); driver != config.StorageDriverMemory {
		t.Fatalf("expected memory driver from file, got %q", driver)
	}
}

func TestReadConfigFileRejectsMissingOrBrokenPath(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte("storage: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	testCases := map[string]string{
		"missing": filepath.Join(dir, "absent.yaml"),
		"broken":  broken,
	}
	for name, path := range testCases {
		t.Run(name, func(t *testing.T) {
			if err := readConfigFile(config.NewViper(), path); err == nil {
				t.Fatalf("expected error for %s config file", name)
			}
		})
	}
}
