// Command catalogctl administers the exercise catalog outside the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
