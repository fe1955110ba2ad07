package bootconfig

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultSettingsPaths lists where Load looks for an optional settings
// file when settingsFile is empty, in priority order.
var DefaultSettingsPaths = []string{
	"nucleus.yaml",
	"nucleus.yml",
	"/etc/nucleus/nucleus.yaml",
}

// Load builds Settings from, in increasing precedence: built-in defaults,
// an optional YAML settings file (settingsFile if non-empty, else the
// first of DefaultSettingsPaths that exists), the environment variable
// allowlist, and finally opts. The result is validated before return.
func Load(settingsFile string, opts ...Option) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("bootconfig: load defaults: %w", err)
	}

	if settingsFile == "" {
		settingsFile = findSettingsFile()
	}
	if settingsFile != "" {
		if err := k.Load(file.Provider(settingsFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("bootconfig: load settings file %s: %w", settingsFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("bootconfig: load environment: %w", err)
	}

	settings := &Settings{}
	if err := k.Unmarshal("", settings); err != nil {
		return nil, fmt.Errorf("bootconfig: unmarshal settings: %w", err)
	}

	for _, opt := range opts {
		opt(settings)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("bootconfig: %w", err)
	}
	return settings, nil
}

// findSettingsFile returns the first existing path in DefaultSettingsPaths,
// or "" if none exist.
func findSettingsFile() string {
	for _, path := range DefaultSettingsPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
