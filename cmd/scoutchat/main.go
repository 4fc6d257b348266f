// Command scoutchat runs the search proxy and the web-augmented chat client.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
