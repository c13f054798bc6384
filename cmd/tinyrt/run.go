package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"tinyrt/internal/app"
	"tinyrt/internal/board"
	"tinyrt/internal/console"
	"tinyrt/internal/kern"
)

var (
	runOpts = struct {
		config  string
		trace   string
		runFor  time.Duration
		verbose bool
	}{}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Boot the simulated board and run the firmware",
		Long: "Load the board configuration, bring up the kernel, register the\n" +
			"firmware tasks, and run the scheduler until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := kern.Load(runOpts.config)
			if err != nil {
				return err
			}
			prof, err := board.Lookup(cfg.Board)
			if err != nil {
				return err
			}
			cfg.ApplyBoard(prof)

			level := console.LevelInfo
			if runOpts.verbose {
				level = console.LevelVerbose
			}
			log := console.New(console.Options{Writer: os.Stdout, Level: level, Color: true})

			k := kern.New(cfg, log)
			if runOpts.trace != "" {
				if err := k.EnableTrace(runOpts.trace); err != nil {
					return err
				}
			}

			if err := app.Main(k, log); err != nil {
				log.Errorf("boot", "%v", err)
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			if runOpts.runFor > 0 {
				ctx, cancel = context.WithTimeout(ctx, runOpts.runFor)
				defer cancel()
			}
			return k.Run(ctx)
		},
	}
)

func init() {
	runCmd.Flags().StringVarP(&runOpts.config, "config", "c", "config.yml", "YAML config path (defaults apply when missing)")
	runCmd.Flags().StringVar(&runOpts.trace, "trace", "", "write a CSV scheduler trace to this path")
	runCmd.Flags().DurationVar(&runOpts.runFor, "for", 0, "stop after this long (0 runs until interrupted)")
	runCmd.Flags().BoolVarP(&runOpts.verbose, "verbose", "v", false, "show the scheduler trace on the console")
	rootCmd.AddCommand(runCmd)
}
