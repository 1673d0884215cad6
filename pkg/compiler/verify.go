package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// VerifyBlockTerminators checks that every basic block in module ends in
// exactly one terminator instruction, an invariant the lowerer is
// responsible for maintaining. It does not attempt the rest of what an
// LLVM IR verifier would check (type correctness, dominance, phi
// well-formedness); a backend that consumes this module is still expected
// to run llvm's own verifier before emitting code.
func VerifyBlockTerminators(module *ir.Module) error {
	for _, fn := range module.Funcs {
		for _, block := range fn.Blocks {
			if block.Term == nil {
				return fmt.Errorf("function %q: block %q has no terminator", fn.Name(), block.Name())
			}
		}
	}
	return nil
}
