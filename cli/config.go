package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/voltpack/corepm/configuration"
	"github.com/voltpack/corepm/internal/dcontext"
)

// loadConfig opens and parses the file at path, mirroring the teacher's
// own registry.resolveConfiguration. Unlike the registry server, corepm
// runs fine from flags alone, so an empty path is not an error: it just
// means no config file was requested, and every caller falls back to its
// flag defaults.
func loadConfig(path string) (*configuration.Configuration, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := configuration.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}

// configureLoggingFromConfig applies cfg.Log the way the teacher's
// registry.configureLogging applies config.Log, minus the logstash
// formatter and ReportCaller knob the registry server exposes that this
// installer has no use for.
func configureLoggingFromConfig(cfg *configuration.Configuration) {
	if cfg == nil {
		configureLogging()
		return
	}

	level, err := logrus.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	formatter := cfg.Log.Formatter
	if formatter == "" {
		formatter = "text"
	}
	switch formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano, DisableHTMLEscape: true})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339Nano})
	}

	ctx := dcontext.Background()
	logger := dcontext.GetLogger(ctx)
	if len(cfg.Log.Fields) > 0 {
		fields := make(map[any]any, len(cfg.Log.Fields))
		for k, v := range cfg.Log.Fields {
			fields[k] = v
		}
		logger = dcontext.GetLoggerWithFields(ctx, fields)
	}
	dcontext.SetDefaultLogger(logger)
}

// storeOptions returns the driver name and parameters named by cfg.Store,
// with ok=false if cfg is nil or names no driver (the zero value of
// StoreDriver), in which case store.New's own "filesystem" default applies.
func storeOptions(cfg *configuration.Configuration) (params map[string]interface{}, driverName string, ok bool) {
	if cfg == nil {
		return nil, "", false
	}
	name := cfg.Store.Name()
	if name == "" {
		return nil, "", false
	}
	return cfg.Store.Parameters(), name, true
}
