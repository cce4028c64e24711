// playlogctl is the operator CLI for a playlog store.
package main

import (
	"fmt"
	"os"

	"playlog/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "playlogctl:", err)
		os.Exit(1)
	}
}
