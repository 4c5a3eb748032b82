package main

import (
	"fmt"
	"os"

	"github.com/arcanaland/grimoire/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.Reported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
