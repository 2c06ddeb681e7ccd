// SPDX-License-Identifier: MIT

// lersgen is the bulk report generation tool. It drives the local vendor
// server and any number of remote gateway instances from one command line.
package main

import (
	"os"

	"github.com/1001011000101101/lers-plugins-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
