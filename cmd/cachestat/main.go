// Command cachestat is a diagnostic CLI over an opcache cache directory.
// It never takes part in the cached-call path; it only reads what's
// already there.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
