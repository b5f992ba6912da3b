package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Initialize writes a default configuration file to the given directory.
// Existing files are never overwritten.
func Initialize(fsys afero.Fs, path string, logger *log.Logger) error {
	configPath := filepath.Join(path, ConfigurationName)

	exists, err := afero.Exists(fsys, configPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("a configuration already exists at %s", configPath)
	}

	contents, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}

	logger.Printf("Writing default configuration to %s", configPath)
	return afero.WriteFile(fsys, configPath, contents, 0600)
}
