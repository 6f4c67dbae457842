// Command tracker runs the shipment tracking API and its operator tooling.
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-shipment-tracker/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.RootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
