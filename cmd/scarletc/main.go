// Command scarletc drives the Scarlet compiler front end: it reads a
// source file, runs it through lexing, parsing, semantic analysis, and IR
// lowering, and writes the result according to the flags below.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scarletc/pkg/compiler"
)

const version = "scarletc 0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("scarletc", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: scarletc [flags] <input.scarlet>")
		fs.PrintDefaults()
	}

	outPath := fs.String("o", "", "output path (default: input with .ll extension)")
	emitIR := fs.Bool("S", false, "emit textual IR instead of writing a module file")
	emitObject := fs.Bool("c", false, "emit an object file (requires a backend)")
	tokensOnly := fs.Bool("E", false, "tokenize only, print tokens, and stop")
	verbose := fs.Bool("v", false, "verbose diagnostic logging")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if *showVersion {
		fmt.Println(version)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	inPath := fs.Arg(0)

	source, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", inPath, err)
		return 1
	}
	src := string(source)

	if *tokensOnly {
		for _, tok := range compiler.Lex(src) {
			fmt.Println(tok.String())
		}
		return 0
	}

	if *emitObject {
		fmt.Fprintln(os.Stderr, "object emission requires a backend; this driver only lowers to IR")
		return 1
	}

	start := time.Now()
	result, diags := compiler.Compile(src)
	if *verbose {
		log.Printf("compile(%s) took %s", inPath, time.Since(start))
	}
	if len(diags) > 0 {
		for _, d := range diags {
			if *verbose {
				fmt.Fprintln(os.Stderr, d.Snippet())
			} else {
				fmt.Fprintln(os.Stderr, d.Error())
			}
		}
		return 1
	}

	ir := result.Module.String()

	if *emitIR {
		fmt.Println(ir)
		return 0
	}

	output := *outPath
	if output == "" {
		output = defaultOutputPath(inPath)
	}
	if err := os.WriteFile(output, []byte(ir), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output file %q: %v\n", output, err)
		return 1
	}
	if *verbose {
		log.Printf("wrote %d bytes -> %s", len(ir), output)
	}
	return 0
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".ll"
	}
	return strings.TrimSuffix(inPath, ext) + ".ll"
}
