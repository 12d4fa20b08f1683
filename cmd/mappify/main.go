// Command mappify compiles filters and runs statements against a database
// configured through DB_* environment variables.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
