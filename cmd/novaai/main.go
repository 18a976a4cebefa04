package main

import (
	"os"

	"github.com/abdul34602/novaaipro1/cmd/novaai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
