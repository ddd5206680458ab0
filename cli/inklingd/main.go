package main

import (
	"os"

	servecmder "github.com/inklingco/inkling/cmd/inkling/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "inklingd"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .inkling/ directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
