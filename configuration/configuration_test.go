package configuration

import (
	"bytes"
	"testing"
)

const sampleConfigYAML = `
version: "0.1"
log:
  level: info
  fields:
    environment: test
store:
  filesystem:
    rootdirectory: /var/cache/corepm
install:
  verify: required
  linkStrategy: auto
  scripts: "off"
  concurrency:
    network: 16
    filesystem: 8
`

func TestParseSampleConfig(t *testing.T) {
	config, err := Parse(bytes.NewBufferString(sampleConfigYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if config.Version != currentVersion {
		t.Errorf("Version = %q, want %q", config.Version, currentVersion)
	}
	if config.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", config.Log.Level)
	}
	if config.Store.Name() != "filesystem" {
		t.Errorf("Store.Name() = %q, want filesystem", config.Store.Name())
	}
	if config.Store.Parameters()["rootdirectory"] != "/var/cache/corepm" {
		t.Errorf("Store.Parameters()[rootdirectory] = %v", config.Store.Parameters()["rootdirectory"])
	}
	if config.Install.Concurrency.Network != 16 {
		t.Errorf("Install.Concurrency.Network = %d, want 16", config.Install.Concurrency.Network)
	}
	if got := config.Install.VerifyPolicy(); got != "required" {
		t.Errorf("VerifyPolicy() = %q, want required", got)
	}
}

func TestParseDefaultsOnMissingFields(t *testing.T) {
	config, err := Parse(bytes.NewBufferString(`version: "0.1"`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := config.Install.VerifyPolicy(); got != "required" {
		t.Errorf("VerifyPolicy() default = %q, want required", got)
	}
	if got := config.Install.LinkStrategyPolicy(); got != "auto" {
		t.Errorf("LinkStrategyPolicy() default = %q, want auto", got)
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	if _, err := Parse(bytes.NewBufferString(`version: "9.9"`)); err == nil {
		t.Fatal("Parse with unsupported version succeeded, want error")
	}
}

func TestParseBareStoreDriverName(t *testing.T) {
	config, err := Parse(bytes.NewBufferString(`
version: "0.1"
store: filesystem
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if config.Store.Name() != "filesystem" {
		t.Errorf("Store.Name() = %q, want filesystem", config.Store.Name())
	}
}

func TestLoglevelRejectsInvalid(t *testing.T) {
	if _, err := Parse(bytes.NewBufferString(`
version: "0.1"
log:
  level: verbose
`)); err == nil {
		t.Fatal("Parse with invalid loglevel succeeded, want error")
	}
}
