// Command habitctl signs in to the habitauth service and keeps the session
// in a local file so later invocations reuse and refresh it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
