package main

import (
	"os"

	"facility-usage-backend/cmd/usagectl/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
