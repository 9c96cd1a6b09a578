package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wabisabi",
	Short: "WabiSabi credential coordinator and tools.",
}

func main() {
	rootCmd.AddCommand(coordinatorCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(keygenCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
