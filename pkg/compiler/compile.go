// Package compiler implements the front end of the Scarlet compiler: lexer,
// recursive-descent parser, scoped semantic analyzer, and an IR lowerer
// that hands off a complete LLVM IR module to whatever backend consumes it.
// The package performs no code generation to machine code or assembly of
// its own; that is left to the backend built on top of the emitted module.
package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// Result carries every artifact produced by a successful Compile, plus the
// symbol table of top-level declarations for tooling that wants to inspect
// it (a language server, a REPL). The CLI driver uses only Module.
type Result struct {
	Tokens  []Token
	Program *Program
	Symbols *SymbolTable
	Module  *ir.Module
}

// Compile runs the full pipeline: lex, parse, analyze, lower. Each stage
// runs only if the previous one produced no diagnostics; a stage that adds
// diagnostics is the compile's last stage, and Compile returns them
// without running later stages on a tree it cannot trust.
func Compile(src string) (*Result, Diagnostics) {
	tokens := Lex(src)

	if diags := lexErrors(tokens); len(diags) > 0 {
		return nil, diags
	}

	program, diags := Parse(tokens, src)
	if len(diags) > 0 {
		return nil, diags
	}

	syms, diags := Analyze(program, src)
	if len(diags) > 0 {
		return nil, diags
	}

	module := Lower(program, syms)
	if err := VerifyBlockTerminators(module); err != nil {
		return nil, Diagnostics{{Message: fmt.Sprintf("internal error: %v", err)}}
	}

	return &Result{Tokens: tokens, Program: program, Symbols: syms, Module: module}, nil
}

// lexErrors reports every ERROR token the lexer produced. A malformed token
// stream is never worth handing to the parser: the parser's own recovery
// would just bury the lexer's actual complaint (e.g. "unterminated string")
// under a generic "Expect expression." diagnostic at the wrong location.
func lexErrors(tokens []Token) Diagnostics {
	var diags Diagnostics
	for _, tok := range tokens {
		if tok.Kind == ERROR {
			diags.add(tok.Location, "%s", tok.Lexeme)
		}
	}
	return diags
}
