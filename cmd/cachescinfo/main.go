// Command cachescinfo reports the host's cache topology and the CPU
// capabilities cachesc's timing primitives depend on. It is a
// diagnostic tool only: it never builds an eviction set or runs a
// Prime+Probe measurement.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Miro-H/CacheSC"
	"github.com/Miro-H/CacheSC/internal/arch"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cachescinfo",
		Short: "Report cache topology and CPU timing capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := arch.DetectCapabilities()
			fmt.Printf("RDTSCP:            %v\n", caps.RDTSCP)
			fmt.Printf("pagemap privilege: %v\n", cachesc.CanTranslate())
			fmt.Println()

			for _, d := range arch.DetectCacheTopology() {
				fmt.Printf("L%d cache: %d bytes\n", d.Level, d.SizeBytes)
			}

			fmt.Println()
			fmt.Printf("configured L1: %d sets x %d ways, %d cycles\n",
				cachesc.L1Sets, cachesc.L1Associativity, cachesc.L1AccessTime)
			fmt.Printf("configured L2: %d sets x %d ways, %d cycles\n",
				cachesc.L2Sets, cachesc.L2Associativity, cachesc.L2AccessTime)
			return nil
		},
	}
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
