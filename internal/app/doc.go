// Package app runs the owner loop: the single goroutine that owns all
// mutable session state.
//
// IPC worker goroutines and the SIGCHLD fanout are the only sources of
// asynchronous input. Each tick the owner drains both, reaps exited children,
// and applies request mutations to the session store. Restart requests hand
// control to the restart coordinator, which replaces the process image.
package app
