// Package config holds the application configuration and the layered loading
// that builds it: defaults, then an optional YAML file, then PROMPTGRID_*
// environment variables. Command-line flags are applied last by the cli
// package.
package config
