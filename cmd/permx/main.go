// Command permx simulates permissionx requests from scenario files.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/permissionx/cmd/permx/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
