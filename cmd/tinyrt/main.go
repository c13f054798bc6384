package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tinyrt",
	Short: "Firmware template on a simulated real-time kernel",
	Long: "tinyrt boots a simulated microcontroller board and runs the firmware\n" +
		"payload on a small preemptive priority kernel. The stock payload is a\n" +
		"single task that announces liveness on the console once per second.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
