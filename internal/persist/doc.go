// Package persist handles the restart snapshot: a versioned JSON file
// capturing every live session's descriptor, pid, and display metadata.
//
// A snapshot whose version does not match StateVersion is rejected whole;
// partial interpretation of a drifted format is never attempted. The package
// also carries the descriptor-level helpers the restart sequence needs:
// clearing close-on-exec so masters survive the exec, cheap fd/pid liveness
// probes for post-restart validation, and the window-size toggle that forces
// resumed shells to repaint.
package persist
