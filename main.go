package main

import (
	"os"

	"github.com/genflow/genflow/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
