package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "rubocop.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	conf, err := ReadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("missing config should not be an error, got: %v", err)
	}
	if *conf.ExitCode != DefaultExitCode {
		t.Errorf("expected default exit code %d, got %d", DefaultExitCode, *conf.ExitCode)
	}
	if !slices.Equal(conf.Only, []string{"**/*.rb"}) {
		t.Errorf("expected default only globs, got %v", conf.Only)
	}
	if len(conf.Ignore) != 0 || len(conf.RubocopArgs) != 0 {
		t.Errorf("expected empty ignore and args, got %v %v", conf.Ignore, conf.RubocopArgs)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
exit_code = 2
rubocop_args = ["--no-color"]
only = ["app/**/*.rb", "lib/**/*.rb"]
ignore = ["db/schema.rb"]
`)

	conf, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *conf.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %d", *conf.ExitCode)
	}
	if !slices.Equal(conf.RubocopArgs, []string{"--no-color"}) {
		t.Errorf("unexpected args: %v", conf.RubocopArgs)
	}
	if !slices.Equal(conf.Only, []string{"app/**/*.rb", "lib/**/*.rb"}) {
		t.Errorf("unexpected only globs: %v", conf.Only)
	}
	if !slices.Equal(conf.Ignore, []string{"db/schema.rb"}) {
		t.Errorf("unexpected ignore globs: %v", conf.Ignore)
	}
}

func TestReadConfigPartial(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `ignore = ["vendor/**"]`)

	conf, err := ReadConfig(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *conf.ExitCode != DefaultExitCode {
		t.Errorf("expected default exit code, got %d", *conf.ExitCode)
	}
	if !slices.Equal(conf.Only, []string{"**/*.rb"}) {
		t.Errorf("expected default only globs, got %v", conf.Only)
	}
	if !slices.Equal(conf.Ignore, []string{"vendor/**"}) {
		t.Errorf("unexpected ignore globs: %v", conf.Ignore)
	}
}

func TestReadConfigBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "exit_code = [not toml")

	conf, err := ReadConfig(dir)
	if err == nil {
		t.Error("expected a parse error")
	}
	if conf == nil || *conf.ExitCode != DefaultExitCode {
		t.Error("broken config must fall back to defaults")
	}
}
