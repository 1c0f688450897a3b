// Command utx-harden is the CLI driver documented in spec §6: it loads an
// IR module, runs either the Instrumentation Pass or the standalone
// Static Verifier over a named function, and reports the result. The
// driver itself — argument parsing, file I/O, exit codes — sits outside
// the core (spec §1); it exists here for end-to-end testability, as
// spec §6 calls for.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"utxharden/internal/diagnostics"
	"utxharden/internal/hardenerr"
	"utxharden/internal/instrument"
	"utxharden/internal/verify"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		usage()
		return 2
	}

	// Supplemented from original_source/src/main.rs: a standalone
	// `verify` subcommand alongside the default harden behaviour.
	if args[0] == "verify" {
		return runVerify(args[1:])
	}
	return runHarden(args)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: utx-harden <bitcode-path> <function-name> [-s]")
	fmt.Fprintln(os.Stderr, "       utx-harden verify <bitcode-path> <function-name>")
}

func runHarden(args []string) int {
	path, fn, static, ok := parseHardenArgs(args)
	if !ok {
		usage()
		return 2
	}

	module, err := asm.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to parse %s: %v\n", color.RedString("error"), path, err)
		return 1
	}

	opts := instrument.Options{Static: static}
	if err := instrument.Harden(module, fn, opts); err != nil {
		reportError(err)
		return 1
	}

	if err := os.WriteFile("out.ll", []byte(module.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to write out.ll: %v\n", color.RedString("error"), err)
		return 1
	}

	fmt.Println(color.GreenString("instrumented %s -> out.ll", fn))

	// Spec §6: "module-verify result appended". original_source/src/main.rs
	// calls inkwell's module.verify() here, an LLVM-backed type/dominance
	// checker with no equivalent in github.com/llir/llvm (a pure-Go
	// parser/printer, not an LLVM binding — see DESIGN.md). The closest
	// faithful substitute this repo can run is its own Static Verifier
	// (component E) over the just-instrumented function, so the CLI still
	// appends a real verify result rather than skipping the step outright.
	target := findFunc(module, fn)
	if target != nil {
		fmt.Print(diagnostics.FormatVerdict(fn, verify.Verify(target)))
	}
	return 0
}

func runVerify(args []string) int {
	if len(args) != 2 {
		usage()
		return 2
	}
	path, fn := args[0], args[1]

	module, err := asm.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to parse %s: %v\n", color.RedString("error"), path, err)
		return 1
	}

	target := findFunc(module, fn)
	if target == nil {
		reportError(hardenerr.MissingFunctionf(fn))
		return 1
	}

	accept := verify.Verify(target)
	fmt.Print(diagnostics.FormatVerdict(fn, accept))
	if !accept {
		return 1
	}
	return 0
}

func parseHardenArgs(args []string) (path, fn string, static bool, ok bool) {
	var positional []string
	for _, a := range args {
		if a == "-s" {
			static = true
			continue
		}
		positional = append(positional, a)
	}
	if len(positional) != 2 {
		return "", "", false, false
	}
	return positional[0], positional[1], static, true
}

func reportError(err error) {
	if he, isHardenErr := err.(*hardenerr.Error); isHardenErr {
		fmt.Fprint(os.Stderr, diagnostics.FormatError(he))
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
}

func findFunc(module *ir.Module, name string) *ir.Func {
	for _, f := range module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}
