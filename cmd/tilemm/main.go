package main

import (
	"os"

	"github.com/xupit3r/tilemm/cmd/tilemm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
