package config

import (
	"os"
	"path/filepath"
	"testing"

	"rvsim/internal/riscv/mmu"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("Load(missing) = %+v, want defaults %+v", cfg, DefaultConfig())
	}
}

func TestLoadOverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rvsim.yml")
	if err := os.WriteFile(path, []byte("xlen: 32\nextensions: imac\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.XLen != 32 {
		t.Errorf("XLen = %d, want 32", cfg.XLen)
	}
	if cfg.Extensions != "imac" {
		t.Errorf("Extensions = %q, want imac", cfg.Extensions)
	}
	if cfg.MemorySizeMB != DefaultConfig().MemorySizeMB {
		t.Errorf("MemorySizeMB = %d, want default %d unchanged", cfg.MemorySizeMB, DefaultConfig().MemorySizeMB)
	}
}

func TestValidateRejectsUnknownExtensionSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extensions = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject an unrecognized extension set")
	}
}

func TestMMUXLenMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.XLen = 32
	if cfg.MMUXLen() != mmu.XLen32 {
		t.Errorf("MMUXLen() = %v, want XLen32", cfg.MMUXLen())
	}
	cfg.XLen = 64
	if cfg.MMUXLen() != mmu.XLen64 {
		t.Errorf("MMUXLen() = %v, want XLen64", cfg.MMUXLen())
	}
}

func TestHasCompressed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extensions = "ima"
	if cfg.HasCompressed() {
		t.Error("ima should not report compressed support")
	}
	cfg.Extensions = "imac"
	if !cfg.HasCompressed() {
		t.Error("imac should report compressed support")
	}
}
