package main

import (
	"github.com/voltpack/corepm/cli"
)

func main() {
	cli.RootCmd.Execute()
}
