package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/promptgridgo/internal/node"
)

// Config is everything one invocation needs.
type Config struct {
	LogLevel        string `yaml:"logLevel"`
	LogFormat       string `yaml:"logFormat"`
	HealthcheckPort int    `yaml:"healthcheckPort"`

	ProjectPaths []string       `yaml:"projectPaths"`
	Graph        string         `yaml:"graph"`
	Inputs       map[string]any `yaml:"inputs"`
	Context      map[string]any `yaml:"context"`
	Settings     node.Settings  `yaml:"settings"`
	// NativeRoot enables file system nodes below this directory.
	NativeRoot string `yaml:"nativeRoot"`

	RecordingDB       string  `yaml:"recordingDb"`
	RemoteDebuggerURL string  `yaml:"remoteDebuggerUrl"`
	MetricsPort       int     `yaml:"metricsPort"`
	TraceStdout       bool    `yaml:"traceStdout"`
	MaxConcurrency    int     `yaml:"maxConcurrency"`
	HTTPRateLimit     float64 `yaml:"httpRateLimit"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate normalizes case and checks field ranges.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)

	if !contains(validLevels, c.LogLevel) {
		return fmt.Errorf("%w: log-level must be 'debug', 'info', 'warn', or 'error'", ErrInvalid)
	}
	if !contains(validFormats, c.LogFormat) {
		return fmt.Errorf("%w: log-format must be 'text' or 'json'", ErrInvalid)
	}
	for name, port := range map[string]int{"healthcheck-port": c.HealthcheckPort, "metrics-port": c.MetricsPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: %s %d out of range", ErrInvalid, name, port)
		}
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max-concurrency must not be negative", ErrInvalid)
	}
	if c.HTTPRateLimit < 0 {
		return fmt.Errorf("%w: http-rate-limit must not be negative", ErrInvalid)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
