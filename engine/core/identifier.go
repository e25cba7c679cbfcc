package core

import "sync/atomic"

// InvalidID is never handed out by IdentifierAquireNewID.
const InvalidID uint64 = 0

var lastID atomic.Uint64

// IdentifierAquireNewID returns a process-unique, never reused identifier.
// Safe to call from any goroutine.
func IdentifierAquireNewID() uint64 {
	return lastID.Add(1)
}
