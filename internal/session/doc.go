// Package session holds the daemon's mutable session state.
//
// The Store is an owner-goroutine-only registry: no lock guards it, because
// every mutation happens on the single state-owning goroutine and all other
// goroutines communicate through channels. It produces the serializable
// snapshot used by the restart sequence and rebuilds sessions from one.
package session
