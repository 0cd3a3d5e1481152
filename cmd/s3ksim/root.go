package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	descriptorPath string
	verbose        bool
	log            = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "s3ksim",
	Short: "Simulator and inspector for an s3k separation kernel image",
	Long: "s3ksim boots a simulated s3k kernel from a TOML platform descriptor,\n" +
		"replays a recorded syscall trace against it, and dumps capability/\n" +
		"schedule state for inspection. It runs the real kernel package\n" +
		"against platform.Sim rather than real hardware.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		} else {
			log.SetLevel(logrus.InfoLevel)
		}
		log.SetOutput(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&descriptorPath, "descriptor", "platform.toml", "path to the TOML platform descriptor")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(dumpCmd)
}

// Execute runs the command tree and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
