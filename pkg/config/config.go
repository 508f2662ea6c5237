// Package config loads each daemon's TOML configuration file into a
// generic map and narrows individual sections into typed structs, the same
// two-step shape used throughout the teacher's per-service New(m
// map[string]interface{}) constructors (e.g.
// cmd/revad/svcs/httpsvcs/helloworldsvc.New).
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Raw is a parsed TOML document before any section has been narrowed into
// a typed struct.
type Raw map[string]interface{}

// Load parses the TOML file at path into a Raw document.
func Load(path string) (Raw, error) {
	raw := Raw{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrap(err, "config: error decoding toml file")
	}
	return raw, nil
}

// Section narrows the named top-level table of raw into dst via
// mapstructure, the same pattern the teacher's services use to turn a
// generic map[string]interface{} into their own config struct.
func Section(raw Raw, name string, dst interface{}) error {
	section, ok := raw[name]
	if !ok {
		return nil
	}
	if err := mapstructure.Decode(section, dst); err != nil {
		return errors.Wrapf(err, "config: error decoding section %q", name)
	}
	return nil
}
