// Package ipc implements the control socket: a Unix domain socket speaking
// newline-delimited JSON, one request object per line.
//
// Concurrency model: one acceptor goroutine, one worker goroutine per open
// connection, and a single owner goroutine consuming requests. Workers never
// touch session state; each decoded request is paired with a one-shot reply
// channel and queued for the owner, which drains the queue with a
// non-blocking Poll and must call Respond exactly once per request. Within a
// connection, request i's reply is written before request i+1 is read.
package ipc
