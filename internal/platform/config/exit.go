package config

import (
	"fmt"
	"io"
	"os"
)

var (
	exitWriter io.Writer = os.Stderr
	exitFunc             = os.Exit
)

// Exitf writes a formatted error message to stderr and exits with code 1.
// Commands use it for startup failures that happen before logging is set up.
func Exitf(format string, args ...any) {
	fmt.Fprintf(exitWriter, format+"\n", args...)
	exitFunc(1)
}

// ExitIf calls Exitf with the context prefix when err is non-nil.
func ExitIf(err error, context string) {
	if err == nil {
		return
	}
	Exitf("%s: %v", context, err)
}
