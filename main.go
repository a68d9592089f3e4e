package main

import (
	"os"

	"github.com/crowdsense/crowdcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
