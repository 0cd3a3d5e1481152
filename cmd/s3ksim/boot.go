package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s3k-go/s3k/kernel"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Load a platform descriptor and print a summary of the booted kernel",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := kernel.Boot(afero.NewOsFs(), descriptorPath, newSimPlatform(), logrus.NewEntry(log))
		if err != nil {
			return err
		}

		fmt.Printf("descriptor: %s\n", descriptorPath)
		fmt.Printf("harts=%d procs=%d caps/proc=%d channels=%d pmp slots=%d\n",
			k.Cfg.NHart, k.Cfg.NProc, k.Cfg.NCap, k.Cfg.NChannel, k.Cfg.NPMP)
		fmt.Printf("schedule: %d slots/hart, slot_len=%d ticks, slack=%d ticks\n",
			k.Cfg.NSlot, k.Cfg.SlotLen, k.Cfg.Slack)
		fmt.Printf("boot capabilities: %d\n", len(k.Cfg.BootCaps))
		for i, b := range k.Cfg.BootCaps {
			fmt.Printf("  [%d] kind=%s\n", i, b.Kind)
		}
		return nil
	},
}
