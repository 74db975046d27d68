package main

import (
	"os"

	"github.com/mnemoshq/mnemos/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
