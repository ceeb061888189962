package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tracetrigger/hexdump"
	"tracetrigger/process"
	"tracetrigger/process_blob"
)

func main() {
	fromFlag := flag.String("from", "", "Directory containing the dump")
	addrFlag := flag.String("addr", "", "Address to read from (hex)")
	sizeFlag := flag.Int("size", 256, "Number of bytes to hexdump")
	flag.Parse()

	if *fromFlag == "" {
		fmt.Println("Error: --from is required")
		flag.Usage()
		os.Exit(1)
	}

	dump, err := process_blob.Load(*fromFlag)
	if err != nil {
		fmt.Printf("Error loading dump from %s: %v\n", *fromFlag, err)
		os.Exit(1)
	}

	fmt.Printf("Loaded dump from %s\n", *fromFlag)
	fmt.Printf("Process Name: %s\n", dump.Meta.Name)
	fmt.Printf("PID: %d\n", dump.Meta.PID)
	fmt.Printf("Image: %s at %s\n", dump.Meta.ImagePath, dump.Meta.ImageBase.ToString())
	fmt.Printf("Memory Regions: %d (%d saved)\n", len(dump.MemoryMap), len(dump.Blobs))

	// If no address is specified, just print summary and exit
	if *addrFlag == "" {
		fmt.Println("\nMemory Map:")
		for _, region := range dump.MemoryMap {
			saved := " "
			if _, ok := dump.Blobs[region.Address]; ok {
				saved = "*"
			}
			fmt.Printf(" %s %016x - %016x (%s) %d bytes %s\n",
				saved, region.Address, region.End(), region.Perms, region.Size, region.Path)
		}
		return
	}

	addrVal, err := strconv.ParseUint(strings.TrimPrefix(*addrFlag, "0x"), 16, 64)
	if err != nil {
		fmt.Printf("Error parsing address: %v\n", err)
		os.Exit(1)
	}
	addr := process.ProcessMemoryAddress(addrVal)

	data, err := dump.ReadMemory(dump.Meta.PID, addr, process.ProcessMemorySize(*sizeFlag))
	if err != nil {
		fmt.Printf("Error reading memory at 0x%x: %v\n", addr, err)
		os.Exit(1)
	}

	fmt.Printf("\nHexdump at 0x%x (%d bytes):\n", addr, *sizeFlag)
	fmt.Print(hexdump.HexdumpBasic(data, uint64(addr), dump.MemoryMap))
}
