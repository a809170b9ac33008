package taiconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/taiplan/configs"
	"github.com/reusee/taiplan/logs"
)

//go:embed schema.cue
var schema string

// ConfigFileEnv names a config file that takes precedence over the searched ones.
const ConfigFileEnv = "TAIPLAN_CONFIG"

func configPaths() (paths []string) {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		paths = append(paths, path)
	}
	var dirs []string
	if dir, err := os.Getwd(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "/etc")
	for _, dir := range dirs {
		for _, name := range []string{"taiplan.cue", ".taiplan.cue"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return
}

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {
	paths := configPaths()
	if len(paths) > 0 {
		logger.Info("config files", "paths", paths)
	}
	return configs.NewLoader(paths, schema)
}
