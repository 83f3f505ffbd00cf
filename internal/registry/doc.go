// Package registry provides the central "glue" for the node kind system.
//
// The Registry maps the kind strings used in graph definitions (e.g.
// "httpCall") to the compiled Go factories that build executors for them.
// Kinds are added only by registering a Definition, usually through a
// Module's Register method; a registry is an explicit value passed to the
// processor, never a process-wide global, so several engines with different
// node sets can coexist.
//
// Before a project is run, ValidateProject checks that every node kind it
// uses is registered, reporting all missing kinds at once.
package registry
