// Package debug provides global debug trace flags
package debug

import (
	"fmt"
	"io"
	"os"
)

// Enabled controls whether general debug traces are printed
var Enabled bool

// Frames controls whether per-frame rig traces are printed (root, origin, turning).
// Use --debug-frames to enable these very verbose traces
var Frames bool

// Network controls whether per-message transport traces are printed
var Network bool

// Output is where traces are written
var Output io.Writer = os.Stdout

// Log prints a message only if debug mode is enabled
func Log(format string, args ...any) {
	if Enabled {
		fmt.Fprintf(Output, format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Fprintln(Output, msg)
	}
}

// FrameLog prints a message only if frame tracing is enabled
func FrameLog(format string, args ...any) {
	if Frames {
		fmt.Fprintf(Output, format, args...)
	}
}

// NetLog prints a message only if network tracing is enabled
func NetLog(format string, args ...any) {
	if Network {
		fmt.Fprintf(Output, format, args...)
	}
}
