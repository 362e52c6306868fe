package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/lddl/cmd"
	_ "github.com/kilianp07/lddl/infra/simulator/synthetic"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
