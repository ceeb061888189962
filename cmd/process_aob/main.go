package main

import (
	"flag"
	"fmt"
	"os"

	"tracetrigger/hexdump"
	"tracetrigger/process"
	"tracetrigger/process/memory_map"
	"tracetrigger/signature"
	"tracetrigger/trace"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to scan")
	nameFlag := flag.String("name", "", "Process name to look up")
	dumpFlag := flag.String("dump", "", "Directory containing a dump to scan instead of a live process")
	aobFlag := flag.String("aob", trace.Signature.String(), "Array of bytes to scan for (e.g., '89 87 ?? ?? ?? ??')")
	regionsFlag := flag.String("regions", "image", "Regions to scan: image (executable PE sections), exec or readable")
	maxdopFlag := flag.Uint("maxdop", 4, "Regions scanned in parallel where the back-end supports it")
	flag.Parse()

	if *pidFlag == 0 && *nameFlag == "" && *dumpFlag == "" {
		fmt.Println("Error: one of --pid, --name or --dump is required")
		flag.Usage()
		os.Exit(1)
	}

	sig, err := signature.Parse(*aobFlag)
	if err != nil {
		fmt.Printf("Error parsing AOB: %v\n", err)
		os.Exit(1)
	}

	target, pid, err := openTarget(*dumpFlag, *pidFlag, *nameFlag)
	if err != nil {
		fmt.Printf("Error opening target: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanning process %d for pattern: %s\n", pid, sig)

	var matches []process.ProcessMemoryAddress
	switch *regionsFlag {
	case "image":
		matches, err = scanImage(target, pid, sig)
	case "exec":
		matches, err = scanRegions(target, pid, sig, memory_map.Executable, *maxdopFlag)
	case "readable":
		matches, err = scanRegions(target, pid, sig, memory_map.Readable, *maxdopFlag)
	default:
		err = fmt.Errorf("unknown region set %q", *regionsFlag)
	}
	if err != nil {
		fmt.Printf("Error scanning memory: %v\n", err)
		os.Exit(1)
	}

	switch len(matches) {
	case 0:
		fmt.Println("No matches")
		os.Exit(1)
	case 1:
		fmt.Println("Found 1 match, the signature is unique")
	default:
		fmt.Printf("Found %d matches, the signature is ambiguous\n", len(matches))
	}

	for _, match := range matches {
		fmt.Printf("\nMatch at %s:\n", match.ToString())

		start := match - 16
		size := process.ProcessMemorySize(32 + sig.Len())

		data, err := target.ReadMemory(pid, start, size)
		if err != nil {
			fmt.Printf("  context unavailable: %v\n", err)
			continue
		}
		fmt.Print(hexdump.HexdumpSignature(data, uint64(start), sig))
	}
}
