// Package configuration parses a corepm run's YAML configuration: the
// store root and its driver parameters, default verify/link-strategy/
// scripts policy, and concurrency caps (§5). It follows the teacher's own
// configuration package shape (a Version-tagged YAML document, parsed
// through the versioned Parser in parser.go, overridable by environment
// variables under a COREPM_ prefix) generalized from a registry server's
// options down to an installer's.
package configuration

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/voltpack/corepm"
)

// Configuration is the root of a corepm run's settings.
type Configuration struct {
	// Version is the config schema version; only "0.1" is recognized.
	Version Version `yaml:"version"`

	Log Log `yaml:"log"`

	// Store selects the content-addressed store's backend driver and its
	// parameters, in the same shape store/driver/factory.Create expects.
	Store StoreDriver `yaml:"store"`

	Install Install `yaml:"install"`
}

// Log configures the installer's logging, consumed by internal/dcontext.
type Log struct {
	Level     Loglevel               `yaml:"level"`
	Formatter string                 `yaml:"formatter,omitempty"`
	Fields    map[string]interface{} `yaml:"fields,omitempty"`
}

// Install carries the §6 invocation surface's defaults, overridable per
// run by the CLI flags that pin that boundary.
type Install struct {
	// Verify is the default VerifyPolicy ("required", "if-present", "skip").
	Verify string `yaml:"verify"`
	// LinkStrategy is the default Materializer strategy ("auto", "clone",
	// "hardlink", "copy").
	LinkStrategy string `yaml:"linkStrategy"`
	// Scripts is "off" or "rebuild"; the core never runs lifecycle
	// scripts itself (§1 Non-goals), this only records whether the
	// Pipeline should invoke the external rebuild collaborator.
	Scripts     string      `yaml:"scripts"`
	Concurrency Concurrency `yaml:"concurrency"`
}

// Concurrency holds the §5 resource-model caps.
type Concurrency struct {
	// Network is the Fetcher's bounded task pool size; 0 means "use the
	// built-in default of 16".
	Network int `yaml:"network"`
	// Filesystem is parsed from the config file but not read by any
	// component: Materializer and Extractor writes are not capped by it.
	Filesystem int `yaml:"filesystem"`
}

// VerifyPolicy converts Install.Verify to corepm.VerifyPolicy, defaulting
// to VerifyRequired when unset.
func (i Install) VerifyPolicy() corepm.VerifyPolicy {
	switch corepm.VerifyPolicy(i.Verify) {
	case corepm.VerifyIfPresent:
		return corepm.VerifyIfPresent
	case corepm.VerifySkip:
		return corepm.VerifySkip
	default:
		return corepm.VerifyRequired
	}
}

// LinkStrategyPolicy converts Install.LinkStrategy to corepm.LinkStrategy,
// defaulting to LinkAuto when unset.
func (i Install) LinkStrategyPolicy() corepm.LinkStrategy {
	switch corepm.LinkStrategy(i.LinkStrategy) {
	case corepm.LinkClone:
		return corepm.LinkClone
	case corepm.LinkHardlink:
		return corepm.LinkHardlink
	case corepm.LinkCopy:
		return corepm.LinkCopy
	default:
		return corepm.LinkAuto
	}
}

const currentVersion = Version("0.1")

// UnmarshalYAML implements yaml.Unmarshaler, storing the version string
// as given; Parser.Parse checks it against the supported versions.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*version = Version(s)
	return nil
}

// Loglevel is one of the logrus levels this config accepts.
type Loglevel string

// UnmarshalYAML implements yaml.Unmarshaler, lowercasing and validating.
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	s = strings.ToLower(s)
	switch s {
	case "", "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s: must be one of [error, warn, info, debug]", s)
	}
	*loglevel = Loglevel(s)
	return nil
}

// Parameters is a key-value parameter mapping, passed through verbatim to
// store/driver/factory.Create.
type Parameters map[string]interface{}

// StoreDriver names exactly one store/driver/factory backend and its
// parameters, e.g.:
//
//	store:
//	  filesystem:
//	    rootdirectory: /var/cache/corepm
type StoreDriver map[string]Parameters

// Name returns the sole configured driver name, or "" if none/ambiguous.
func (s StoreDriver) Name() string {
	if len(s) != 1 {
		return ""
	}
	for k := range s {
		return k
	}
	return ""
}

// Parameters returns the configured driver's parameter map.
func (s StoreDriver) Parameters() Parameters {
	return s[s.Name()]
}

// UnmarshalYAML implements yaml.Unmarshaler, accepting either a bare driver
// name ("filesystem") or a name-to-parameters map.
func (s *StoreDriver) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var m map[string]Parameters
	if err := unmarshal(&m); err == nil {
		if len(m) > 1 {
			return fmt.Errorf("must provide exactly one store driver, got %d", len(m))
		}
		*s = m
		return nil
	}

	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	*s = StoreDriver{name: Parameters{}}
	return nil
}

var parseInfos = []VersionedParseInfo{
	{
		Version: currentVersion,
		ParseAs: reflect.TypeOf(Configuration{}),
		ConversionFunc: func(c interface{}) (interface{}, error) {
			return c, nil
		},
	},
}

// Parse reads a Configuration from rd, applying COREPM_-prefixed
// environment variable overrides per field, exactly as parser.go
// documents.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("corepm", parseInfos)

	config := new(Configuration)
	if err := p.Parse(in, config); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return config, nil
}

// DecodeParameters re-decodes a Parameters map into a typed struct using
// mapstructure, for store drivers (or future extensions) that want typed
// option structs instead of reading the map directly.
func DecodeParameters(params Parameters, out interface{}) error {
	return mapstructure.Decode(map[string]interface{}(params), out)
}
