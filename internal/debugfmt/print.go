// Package debugfmt pretty-prints engine results as indented JSON for the
// CLI's verbose/debug output modes.
package debugfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Print writes v to w as indented JSON, swallowing marshal errors the way a
// diagnostic print path should: a broken debug dump must never abort the
// command it's describing.
func Print(w io.Writer, v interface{}) {
	j, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "<unprintable: %v>\n", err)
		return
	}
	fmt.Fprintln(w, string(j))
}

// PrintStdout is Print against os.Stdout.
func PrintStdout(v interface{}) {
	Print(os.Stdout, v)
}
