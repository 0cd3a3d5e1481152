package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/s3k-go/s3k/kernel"
)

var dumpPid uint16

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Boot a platform descriptor and print its schedule table and a process's capability table",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := kernel.Boot(afero.NewOsFs(), descriptorPath, newSimPlatform(), logrus.NewEntry(log))
		if err != nil {
			return err
		}

		fmt.Println("schedule:")
		for hart := 0; hart < k.Cfg.NHart; hart++ {
			fmt.Printf("  hart %d:", hart)
			for slot := 0; slot < k.Cfg.NSlot; slot++ {
				e := k.Sched.At(hart, slot)
				fmt.Printf(" [%d:pid=%d,end=%d]", slot, e.Pid, e.EndSlot)
			}
			fmt.Println()
		}

		fmt.Printf("capability table for pid %d:\n", dumpPid)
		for idx := 0; idx < k.Cfg.NCap; idx++ {
			h, code := k.Forest.Handle(dumpPid, uint16(idx))
			if !code.Ok() {
				break
			}
			if k.Forest.IsEmpty(h) {
				continue
			}
			c := k.Forest.At(h)
			fmt.Printf("  [%d] kind=%s begin=%d free=%d end=%d\n", idx, c.Kind, c.Begin(), c.Free(), c.End())
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().Uint16Var(&dumpPid, "pid", 0, "process whose capability table to print")
}
