package logging

import (
	"fmt"
	"io"
	"os"
)

// debugOut receives Debugf and Debugln output. Tests swap it.
var debugOut io.Writer = os.Stderr

// DebugEnabled reports whether PT_DEBUG is set. It also lowers New's level
// to debug.
func DebugEnabled() bool {
	return os.Getenv("PT_DEBUG") != ""
}

// Debugf prints to stderr when PT_DEBUG is set. Used before a logger exists.
func Debugf(format string, args ...any) {
	if DebugEnabled() {
		fmt.Fprintf(debugOut, "debug: "+format, args...)
	}
}

func Debugln(args ...any) {
	if DebugEnabled() {
		fmt.Fprintln(debugOut, append([]any{"debug:"}, args...)...)
	}
}
