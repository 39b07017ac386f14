package main

import (
	"os"

	"github.com/applyflow/applyflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
