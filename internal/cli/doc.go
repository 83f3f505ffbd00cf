// Package cli is the cobra command tree of promptgridgo. It resolves the
// layered configuration (defaults, YAML file, PROMPTGRID_ environment,
// flags), hands it to the app, and maps failures to process exit codes.
package cli
