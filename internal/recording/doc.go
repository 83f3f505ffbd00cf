// Package recording captures the events of a run so they can be stored and
// played back later onto another bus.
package recording
