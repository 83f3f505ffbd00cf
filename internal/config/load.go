package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PROMPTGRID_"

// LoadFile decodes the YAML file at path over cfg. Keys absent from the file
// keep their current value.
func LoadFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding %s: %v", ErrInvalid, path, err)
	}
	return nil
}

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from PROMPTGRID_* variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("GRAPH", &cfg.Graph)
	str("RECORDING_DB", &cfg.RecordingDB)
	str("REMOTE_DEBUGGER_URL", &cfg.RemoteDebuggerURL)
	str("NATIVE_ROOT", &cfg.NativeRoot)
	str("OPENAI_KEY", &cfg.Settings.OpenAIKey)
	str("OPENAI_ORGANIZATION", &cfg.Settings.OpenAIOrganization)

	for name, dst := range map[string]*int{
		"HEALTHCHECK_PORT": &cfg.HealthcheckPort,
		"METRICS_PORT":     &cfg.MetricsPort,
		"MAX_CONCURRENCY":  &cfg.MaxConcurrency,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "PROJECT_PATHS"); ok && v != "" {
		cfg.ProjectPaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v, ok := lookup(EnvPrefix + "TRACE_STDOUT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sTRACE_STDOUT: %v", ErrInvalid, EnvPrefix, err)
		}
		cfg.TraceStdout = b
	}
	if v, ok := lookup(EnvPrefix + "HTTP_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sHTTP_RATE_LIMIT: %v", ErrInvalid, EnvPrefix, err)
		}
		cfg.HTTPRateLimit = f
	}
	if v, ok := lookup(EnvPrefix + "RECORDING_PLAYBACK_LATENCY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sRECORDING_PLAYBACK_LATENCY: %v", ErrInvalid, EnvPrefix, err)
		}
		cfg.Settings.RecordingPlaybackLatency = d
	}
	return nil
}

// ParseAssignments turns "key=value" pairs into a map. Values that parse as
// JSON keep their JSON type; anything else is a string.
func ParseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalid, p)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}
