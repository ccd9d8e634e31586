// Package store holds the last rendered dashboard view in memory and
// reports whether it has gone stale. Nothing is persisted.
package store
