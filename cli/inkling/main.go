package main

import (
	"os"

	inklingcmder "github.com/inklingco/inkling/cmd/inkling"
)

func main() {
	cmd := inklingcmder.NewInklingCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
