package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/listgen/errors"
	"github.com/wippyai/listgen/layout"
	"github.com/wippyai/listgen/lower"
	"github.com/wippyai/listgen/rtabi"
)

func main() {
	var (
		opName      = flag.String("op", "", "List builtin to lower (see -ops)")
		elemExpr    = flag.String("elem", "s64", "Element type as a WIT type expression")
		outFile     = flag.String("o", "", "Write the generated module to this file")
		runOp       = flag.Bool("run", false, "Call the generated export with the remaining arguments")
		pages       = flag.Uint("pages", 2, "Minimum memory size in 64 KiB pages")
		stackTop    = flag.Uint("stack-top", 65536, "Initial shadow stack pointer")
		showABI     = flag.Bool("abi", false, "Print the runtime ABI as LLVM declarations and exit")
		listOps     = flag.Bool("ops", false, "List the available ops and exit")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log = l
		defer log.Sync()
	}
	lower.SetLogger(log)
	errors.SetLogger(log)

	if *showABI {
		fmt.Print(rtabi.Declarations().String())
		return
	}

	elem, err := parseLayout(*elemExpr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *listOps {
		for _, name := range opNames() {
			o, _ := lookupOp(name)
			fmt.Printf("  %-10s %s\n", name, o.signature(elem))
		}
		return
	}

	opts := lower.DefaultOptions()
	opts.MemoryPages = uint32(*pages)
	opts.StackTop = uint32(*stackTop)
	opts.Logger = log

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*elemExpr, elem, opts, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *opName == "" {
		fmt.Fprintln(os.Stderr, "Usage: listgen -op <name> [-elem type] [-o out.wasm] [-run [--] args...]")
		fmt.Fprintln(os.Stderr, "       listgen -ops [-elem type]")
		fmt.Fprintln(os.Stderr, "       listgen -abi")
		fmt.Fprintln(os.Stderr, "       listgen -i [-elem type]  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*opName, elem, opts, *outFile, *runOp, flag.Args(), log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opName string, elem layout.Layout, opts lower.Options, outFile string, call bool, args []string, log *zap.Logger) error {
	o, err := lookupOp(opName)
	if err != nil {
		return err
	}
	bin, err := generate(o, elem, opts)
	if err != nil {
		return fmt.Errorf("lower %s: %w", o.name, err)
	}
	fmt.Printf("%s: %d bytes\n", o.signature(elem), len(bin))

	if outFile != "" {
		if err := os.WriteFile(outFile, bin, 0o644); err != nil {
			return fmt.Errorf("write module: %w", err)
		}
		fmt.Printf("Wrote %s\n", outFile)
	}

	if !call {
		return nil
	}
	out, err := execute(context.Background(), bin, o, elem, args, log)
	if err != nil {
		return fmt.Errorf("run %s: %w", o.name, err)
	}
	fmt.Printf("Result: %s\n", out)
	return nil
}
