package main

import (
	"os"

	"github.com/lexintake/lexintake/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
