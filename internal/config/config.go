package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultExitCode is returned by the action when offenses remain after
// reconciliation, distinguishing "offenses found" from a hard failure.
const DefaultExitCode = 64

type Config struct {
	ExitCode    *int     `toml:"exit_code"`
	RubocopArgs []string `toml:"rubocop_args"`
	Only        []string `toml:"only"`
	Ignore      []string `toml:"ignore"`
}

func defaultConfig() *Config {
	exitCode := DefaultExitCode
	return &Config{
		ExitCode:    &exitCode,
		RubocopArgs: []string{},
		Only:        []string{"**/*.rb"},
		Ignore:      []string{},
	}
}

// ReadConfig loads rubocop.toml from the repo directory. A missing file is
// not an error; a broken one falls back to defaults and reports the parse
// error for the caller to warn about.
func ReadConfig(dir string) (*Config, error) {
	config := defaultConfig()

	fileName := filepath.Join(dir, "rubocop.toml")
	if _, err := os.Stat(fileName); errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	file, err := os.ReadFile(fileName)
	if err != nil {
		return config, err
	}
	err = toml.Unmarshal(file, config)
	if err != nil {
		return defaultConfig(), err
	}
	if config.ExitCode == nil {
		exitCode := DefaultExitCode
		config.ExitCode = &exitCode
	}
	if len(config.Only) == 0 {
		config.Only = []string{"**/*.rb"}
	}
	return config, nil
}
