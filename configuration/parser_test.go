package configuration

import (
	"os"
	"reflect"
	"testing"
)

type localConfiguration struct {
	Version       Version `yaml:"version"`
	Log           *Log    `yaml:"log"`
	Notifications []Notif `yaml:"notifications,omitempty"`
}

type Notif struct {
	Name string `yaml:"name"`
}

var expectedConfig = localConfiguration{
	Version: "0.1",
	Log: &Log{
		Formatter: "json",
	},
	Notifications: []Notif{
		{Name: "foo"},
		{Name: "bar"},
		{Name: "car"},
	},
}

const testConfig = `version: "0.1"
log:
  formatter: "text"
notifications:
  - name: "foo"
  - name: "bar"
  - name: "car"`

func newLocalParser() *Parser {
	return NewParser("corepm", []VersionedParseInfo{
		{
			Version: "0.1",
			ParseAs: reflect.TypeOf(localConfiguration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				return c, nil
			},
		},
	})
}

func TestParserOverwriteInitializedPointer(t *testing.T) {
	config := localConfiguration{}

	os.Setenv("COREPM_LOG_FORMATTER", "json")
	defer os.Unsetenv("COREPM_LOG_FORMATTER")

	if err := newLocalParser().Parse([]byte(testConfig), &config); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(config, expectedConfig) {
		t.Fatalf("config = %+v, want %+v", config, expectedConfig)
	}
}

func TestParserOverwriteUninitializedPointer(t *testing.T) {
	config := localConfiguration{}

	// Log starts nil on the zero value; the parser must allocate it before
	// setting Formatter via the env override.
	os.Setenv("COREPM_LOG_FORMATTER", "json")
	defer os.Unsetenv("COREPM_LOG_FORMATTER")

	if err := newLocalParser().Parse([]byte(testConfig), &config); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(config, expectedConfig) {
		t.Fatalf("config = %+v, want %+v", config, expectedConfig)
	}
}
