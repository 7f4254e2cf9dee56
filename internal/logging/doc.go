// Package logging provides structured logging built on zap.
//
// The daemon logs as JSON in production and as colored console output in
// development. Because stdout may be a terminal the daemon itself is hosting,
// log output can be redirected to a file via OutputPaths.
package logging
