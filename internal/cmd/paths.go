package cmd

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user configuration directory.
const AppName = "usbmidi"

// ConfigCandidatePaths returns the defaults files to try, by loader. An
// explicit user path is the only candidate, routed by its extension.
func ConfigCandidatePaths(user string) (yamlPaths, tomlPaths []string) {
	if user != "" {
		if strings.EqualFold(filepath.Ext(user), ".toml") {
			return nil, []string{user}
		}
		return []string{user}, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, nil
	}
	dir = filepath.Join(dir, AppName)
	yamlPaths = []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
	}
	tomlPaths = []string{filepath.Join(dir, "config.toml")}
	return yamlPaths, tomlPaths
}
