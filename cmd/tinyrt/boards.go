package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tinyrt/internal/board"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the known board profiles",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range board.Profiles() {
			fmt.Printf("%-10s cpu=%dMHz heap=%dKiB tick=%dms\n",
				p.Name, p.CPUMHz, p.HeapBytes>>10, p.TickMS)
		}
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}
