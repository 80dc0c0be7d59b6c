package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load reads the configuration from the directory. If given the path
// to an anvil.yaml file it moves back up a level.
func Load(fs afero.Fs, path string) (*Configuration, error) {
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	contents, err := afero.ReadFile(fs, filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(contents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadOrDefault loads the configuration, falling back to the built-in
// one when the file does not exist.
func LoadOrDefault(fs afero.Fs, path string) (*Configuration, error) {
	cfg, err := Load(fs, path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Initialize writes the default configuration into the directory,
// refusing to clobber an existing file unless force is set.
func Initialize(fs afero.Fs, dir string, force bool) error {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	target := filepath.Join(dir, ConfigurationName)
	if _, err := fs.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists", target)
	}
	return afero.WriteFile(fs, target, defaultConfigData, 0644)
}
