// rosette-run loads a serialized Code object and runs it to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/rosette/pkg/bytecode"
)

func main() {
	verbose := flag.Bool("v", false, "Print monitor counters after the run")
	disasm := flag.Bool("disasm", false, "Disassemble the loaded Code object and exit")
	snapshotOut := flag.String("snapshot", "", "Write a diagnostic VMState snapshot to this path after the run")
	async := flag.Bool("async", false, "Drive the run through RunAsyncHost instead of Run, for programs that raise doAsyncWaitFlag")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rosette-run [options] <code-file>\n\n")
		fmt.Fprintf(os.Stderr, "Loads a serialized Code object (pkg/bytecode.Code.Serialize format) and runs it.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rosette-run prog.rsbc          # run to completion\n")
		fmt.Fprintf(os.Stderr, "  rosette-run -v prog.rsbc       # run, then print monitor counters\n")
		fmt.Fprintf(os.Stderr, "  rosette-run -disasm prog.rsbc  # print disassembly and exit\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "rosette-run: %v\n", err)
		os.Exit(1)
	}

	code, err := bytecode.DeserializeCode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rosette-run: deserializing %s: %v\n", args[0], err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Print(bytecode.Disassemble(code))
		return
	}

	state := bytecode.NewVMState(code, bytecode.NewGlobalEnv(0), bytecode.NewPrimTable())

	if *async {
		// No external signal source in this standalone host: injectSignal is a
		// no-op, so a program that parks on doAsyncWaitFlag simply runs out the
		// clock on its own strand/sleeper pools rather than waiting forever.
		err := bytecode.RunAsyncHost(context.Background(), state, func(context.Context, *bytecode.VMState) error {
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "rosette-run: %v\n", err)
			os.Exit(1)
		}
	} else {
		bytecode.Run(state)
	}

	if *verbose {
		opcodes, obs := state.CurrentMonitor.Snapshot()
		fmt.Printf("monitor %s: %d opcodes executed across %d opcode kinds, %d Ob kinds touched\n",
			state.CurrentMonitor.ID(), sumCounts(opcodes), len(opcodes), len(obs))
		for _, line := range state.DebugInfo {
			fmt.Println(line)
		}
	}

	if *snapshotOut != "" {
		snap, err := bytecode.SnapshotVMState(state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rosette-run: snapshotting state: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*snapshotOut, snap, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "rosette-run: writing snapshot: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(state.ExitCode)
}

func sumCounts(m map[bytecode.Opcode]uint64) uint64 {
	var total uint64
	for _, n := range m {
		total += n
	}
	return total
}
