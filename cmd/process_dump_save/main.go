//go:build linux

package main

import (
	"flag"
	"fmt"
	"os"

	"tracetrigger/process"
	"tracetrigger/process_linux"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to dump")
	nameFlag := flag.String("name", "", "Process name to look up instead of --pid")
	outputFlag := flag.String("output", "", "Output directory for the dump")
	allFlag := flag.Bool("all", false, "Save all readable regions, not only the main executable")
	flag.Parse()

	if *pidFlag == 0 && *nameFlag == "" {
		fmt.Println("Error: --pid or --name is required")
		flag.Usage()
		os.Exit(1)
	}

	if *outputFlag == "" {
		fmt.Println("Error: --output is required")
		flag.Usage()
		os.Exit(1)
	}

	proc := process_linux.New()

	pid := process.ProcessID(*pidFlag)
	if pid == 0 {
		var err error
		if pid, err = proc.LookupProcessIDByName(*nameFlag); err != nil {
			fmt.Printf("Error finding process %s: %v\n", *nameFlag, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Saving dump of process %d to %s...\n", pid, *outputFlag)
	if err := proc.Save(pid, *outputFlag, !*allFlag); err != nil {
		fmt.Printf("Error saving dump: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Dump saved successfully.")
}
