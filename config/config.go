// Package config loads emitter settings from defaults, files and the
// environment, and watches a config file for changes.
//
// Sources are merged in priority order (defaults, then file, then
// environment):
//
//	cfg, err := config.Load(
//	    &config.DefaultSource{},
//	    &config.FileSource{Path: "emitter.yaml"},
//	    &config.EnvSource{},
//	)
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Domain   DomainConfig   `koanf:"domain" yaml:"domain"`
	Dispatch DispatchConfig `koanf:"dispatch" yaml:"dispatch"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"required,loglevel"`    // debug, info, warn, error...
	Format string `koanf:"format" yaml:"format" validate:"oneof=console json"` // console | json
}

// DomainConfig holds defaults for execution domains created by a dispatcher.
type DomainConfig struct {
	QueueSize   int           `koanf:"queue_size" yaml:"queue_size" validate:"gt=0"`
	StopTimeout time.Duration `koanf:"stop_timeout" yaml:"stop_timeout" validate:"gte=0"`
}

// DispatchConfig holds dispatch engine settings.
type DispatchConfig struct {
	// SinkLevel is the level at which unhandled listener failures are logged.
	SinkLevel string `koanf:"sink_level" yaml:"sink_level" validate:"required,loglevel"`
	// Trace logs every emission at debug level.
	Trace bool `koanf:"trace" yaml:"trace"`
}

// Reloaded is emitted by a dispatcher after its configuration file changed
// and was loaded successfully.
type Reloaded struct {
	Path   string
	Config Config
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Domain: DomainConfig{
			QueueSize:   256,
			StopTimeout: 5 * time.Second,
		},
		Dispatch: DispatchConfig{
			SinkLevel: "error",
		},
	}
}

// DefaultConfigAsMap flattens DefaultConfig into koanf keys.
func DefaultConfigAsMap() map[string]any {
	def := DefaultConfig()
	return map[string]any{
		"log.level":           def.Log.Level,
		"log.format":          def.Log.Format,
		"domain.queue_size":   def.Domain.QueueSize,
		"domain.stop_timeout": def.Domain.StopTimeout,
		"dispatch.sink_level": def.Dispatch.SinkLevel,
		"dispatch.trace":      def.Dispatch.Trace,
	}
}

// Load merges sources by ascending priority, then unmarshals and validates
// the result. With no sources, the defaults are returned.
func Load(sources ...Source) (Config, error) {
	if len(sources) == 0 {
		sources = []Source{&DefaultSource{}}
	}
	ordered := append([]Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return Config{}, fmt.Errorf("source %s: %w", src.Name(), err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dump renders cfg as YAML.
func Dump(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
