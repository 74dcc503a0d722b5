// Command magicer runs the file-identification HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/javi11/magicer/cmd/magicer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
