package main

import (
	"os"

	"github.com/lguibr/gonwayish/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
