package main

import (
	"fmt"
	"os"

	"github.com/supporttools/GoDBAdmin/pkg/adapter"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(adapter.ExitCritical)
	}
	os.Exit(exitCode)
}
