package main

import (
	"os"

	"xtts-desktop/cmd/xttsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
