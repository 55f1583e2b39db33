// Package config loads yaml configuration files and parses command lines
// shared by the notegen binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// Flags is a space separated list of boolean switches, e.g. "crlf restartwhenshrunk".
type Flags string

// Has reports whether name is one of the switches.
func (f Flags) Has(name string) bool {
	for _, flag := range strings.Fields(string(f)) {
		if flag == name {
			return true
		}
	}
	return false
}

// Load decodes the yaml file filename into dst, which should already hold
// the defaults. A missing file is only an error when required is set.
func Load(filename string, required bool, dst interface{}) error {
	b, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) && !required {
		log.Info().Msgf("config: %s not found, using defaults", filename)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	if err := yaml.UnmarshalStrict(b, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	log.Info().Msgf("config: %s", filename)
	return nil
}
