package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MrSnakeDoc/smartmark/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version.String() {
		t.Errorf("version output = %q, want %q", got, version.String())
	}
}

func TestLoadConfigRecoversFatal(t *testing.T) {
	t.Setenv("SMARTMARK_BACKEND", "carrier-pigeon")
	t.Setenv("SMARTMARK_JWT_SECRET", "0123456789abcdef0123")

	configFile = ""
	if _, err := loadConfig(); err == nil {
		t.Fatal("loadConfig() should turn an invalid config into an error")
	}
}

func TestImportRequiresFile(t *testing.T) {
	rootCmd.SetArgs([]string{"import"})
	var errOut bytes.Buffer
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetErr(nil) })

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("import without --file should fail")
	}
}
