package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"tracetrigger/config"
	"tracetrigger/disasm"
	"tracetrigger/hexdump"
	"tracetrigger/trace"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to resolve against")
	nameFlag := flag.String("name", "", "Process name to look up (defaults to the configured name)")
	dumpFlag := flag.String("dump", "", "Directory containing a dump to resolve against instead of a live process")
	configFlag := flag.String("config", "", "JSON config file")
	fixedFlag := flag.Bool("fixed", false, "Use the configured fixed instruction instead of the signature")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *fixedFlag {
		cfg.Trace.UseFixedInstruction = true
	}

	name := *nameFlag
	if name == "" {
		name = cfg.Process.Name
	}

	target, pid, err := openTarget(*dumpFlag, *pidFlag, name)
	if err != nil {
		fmt.Printf("Error opening target: %v\n", err)
		os.Exit(1)
	}

	resolver := trace.NewResolver(target)
	ctx, err := resolver.GetTargetContext(pid, cfg.Trace)
	if err != nil {
		fmt.Printf("Error resolving trace instruction: %v\n", err)

		var resolveErr *trace.ResolveError
		if errors.As(err, &resolveErr) && resolveErr.Kind.Transient() {
			fmt.Println("The failure is transient, the target may still be unpacking.")
		}
		os.Exit(1)
	}

	fmt.Printf("PID:          %d\n", ctx.PID)
	fmt.Printf("Image base:   %s\n", ctx.ImageBase.ToString())
	fmt.Printf("Instruction:  %s (image+0x%X)\n", ctx.Instruction.Address.ToString(), uint64(ctx.Instruction.Address-ctx.ImageBase))
	fmt.Printf("Register:     %s\n", ctx.Instruction.Register)
	fmt.Printf("Displacement: 0x%X\n", ctx.Instruction.Displacement)

	code, err := target.ReadMemory(pid, ctx.Instruction.Address, disasm.MaxInstructionLength)
	if err != nil {
		fmt.Printf("Error reading instruction bytes: %v\n", err)
		os.Exit(1)
	}

	d, err := disasm.Decode(code)
	if err != nil {
		fmt.Printf("Decode: %v\n", err)
	}
	fmt.Printf("Decoded:      %s (%d bytes)\n\n", d.Intel(uint64(ctx.Instruction.Address)), d.Len)
	fmt.Print(hexdump.HexdumpSignature(code, uint64(ctx.Instruction.Address), trace.Signature))
}
