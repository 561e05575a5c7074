package main

import (
	"os"

	"incidentLog/cmd"
)

func main() {
	if err := cmd.Seed(); err != nil {
		os.Exit(1)
	}
}
