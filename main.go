package main

import (
	"os"

	"github.com/Manish6202/MaharaniStore-sub001/src/cli"
)

// @title        Maharani Store Order API
// @version      1.0
// @description  Order lifecycle and stock reservation for the Maharani Store.
// @BasePath     /
func main() {
	if err := cli.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
