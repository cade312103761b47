package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// IsSystemd reports whether systemd started this process.
func IsSystemd() bool {
	return os.Getenv("INVOCATION_ID") != ""
}

func ExitBad(isSystemd bool) {
	if isSystemd {
		os.Exit(255)
		return
	}

	os.Exit(1)
}

// ErrorChain lists err and everything it wraps, depth first, indented
// by depth.
func ErrorChain(err error) []string {
	lines := []string{}
	var walk func(err error, depth int)
	walk = func(err error, depth int) {
		if err == nil {
			return
		}
		lines = append(lines, strings.Repeat("  ", depth)+err.Error())
		switch e := err.(type) {
		case interface{ Unwrap() error }:
			walk(e.Unwrap(), depth+1)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner, depth+1)
			}
		}
	}
	walk(err, 0)
	return lines
}

func PrintError(w io.Writer, err error) {
	chain := ErrorChain(err)
	fmt.Fprintf(w, "Error: %s\n", chain[0])
	for _, line := range chain[1:] {
		cause := strings.TrimLeft(line, " ")
		fmt.Fprintf(w, "%scaused by: %s\n", line[:len(line)-len(cause)], cause)
	}
}
