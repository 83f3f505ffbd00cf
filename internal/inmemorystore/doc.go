// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// The store uses sync.Map because the key space (the graph's node ids) is
// fixed for a run while values change frequently, and each node's state is
// independent of the others.
package inmemorystore
