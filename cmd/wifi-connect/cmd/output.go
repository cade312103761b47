package cmd

import (
	"encoding/json"
	"io"
	"os"
)

var stdout io.Writer = os.Stdout

// printJSON writes v to stdout when --json was given and reports whether
// it did.
func printJSON(v any) (bool, error) {
	if !flags.json {
		return false, nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
