package compiler

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// slotScope maps a variable name to its stack slot within one lexical
// scope. The lowerer keeps a stack of these, mirroring SymbolTable, so a
// name resolves to the innermost enclosing declaration rather than always
// the function entry block.
type slotScope map[string]*slot

type slot struct {
	ptr value.Value
	typ types.Type
}

// Lowerer walks a type-checked Program and emits an LLVM IR module using
// github.com/llir/llvm. Every slot records its own IR type at allocation
// time; nothing defaults to i32.
type Lowerer struct {
	module *ir.Module

	fn     *ir.Func
	block  *ir.Block
	scopes []slotScope

	stringCounter int
	builtins      map[string]*ir.Func
	functions     map[string]*ir.Func
}

// llvmType maps a resolved DataType to its IR representation. ARRAY,
// FUNCTION_TYPE, and UNKNOWN all fall back to the same opaque i8* as
// STRING_TYPE; the lowerer does not tell them apart, so misuse surfaces only
// as a type mismatch when a backend verifies the module.
func llvmType(d DataType) types.Type {
	switch d {
	case VOID:
		return types.Void
	case INT:
		return types.I32
	case FLOAT_TYPE:
		return types.Double
	case BOOL:
		return types.I1
	case STRING_TYPE:
		return types.I8Ptr
	default:
		return types.I8Ptr
	}
}

// Lower produces an IR module for program. program must already be
// type-checked by Analyze with no diagnostics; syms supplies the resolved
// top-level function signatures the lowerer uses to build each function's
// declaration rather than re-deriving them from the AST.
func Lower(program *Program, syms *SymbolTable) *ir.Module {
	l := &Lowerer{module: ir.NewModule(), functions: map[string]*ir.Func{}}
	l.declareBuiltins()
	l.scopes = []slotScope{{}}

	// Declare every function's signature up front so a call to a function
	// defined later in the source (or mutual recursion) still resolves.
	var decls []*FuncDecl
	for _, stmt := range program.Statements {
		if fd, ok := stmt.(*FuncDecl); ok {
			decls = append(decls, fd)
			l.declareFunc(fd, syms)
		}
	}
	for _, fd := range decls {
		l.lowerFuncDecl(fd)
	}

	return l.module
}

func (l *Lowerer) declareFunc(fd *FuncDecl, syms *SymbolTable) {
	sym, ok := syms.Lookup(fd.Name)
	paramTypes := sym.ParameterTypes
	returnType := sym.ReturnType
	if !ok || len(paramTypes) != len(fd.Params) {
		// Fallback for a symbol table that somehow disagrees with the AST;
		// should not happen once Analyze has run with no diagnostics.
		paramTypes = make([]DataType, len(fd.Params))
		for i, p := range fd.Params {
			paramTypes[i] = p.Type
		}
		returnType = fd.ReturnType
	}

	params := make([]*ir.Param, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = ir.NewParam(p.Name, llvmType(paramTypes[i]))
	}
	l.functions[fd.Name] = l.module.NewFunc(fd.Name, llvmType(returnType), params...)
}

// declareBuiltins wires the three built-in bindings the semantic analyzer
// pre-populates: print forwards to printf with a fixed "%s\n" format,
// sqrt binds the libm double entry point, and input binds an
// input_line() runtime-support seam a backend must supply.
func (l *Lowerer) declareBuiltins() {
	l.builtins = map[string]*ir.Func{}

	printf := l.module.NewFunc("printf", types.I32, ir.NewParam("fmt", types.I8Ptr))
	printf.Sig.Variadic = true
	l.builtins["__printf"] = printf

	l.builtins["sqrt"] = l.module.NewFunc("sqrt", types.Double, ir.NewParam("x", types.Double))
	l.builtins["input"] = l.module.NewFunc("input_line", types.I8Ptr)
}

func (l *Lowerer) pushScope() {
	l.scopes = append(l.scopes, slotScope{})
}

func (l *Lowerer) popScope() {
	l.scopes = l.scopes[:len(l.scopes)-1]
}

func (l *Lowerer) defineSlot(name string, ptr value.Value, typ types.Type) {
	l.scopes[len(l.scopes)-1][name] = &slot{ptr: ptr, typ: typ}
}

func (l *Lowerer) resolveSlot(name string) *slot {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if s, ok := l.scopes[i][name]; ok {
			return s
		}
	}
	return nil
}

func (l *Lowerer) newStringLabel() string {
	l.stringCounter++
	return fmt.Sprintf(".str.%d", l.stringCounter)
}

func (l *Lowerer) lowerFuncDecl(fd *FuncDecl) {
	fn := l.functions[fd.Name]
	l.fn = fn
	l.block = fn.NewBlock("entry")
	l.pushScope()

	for i, p := range fd.Params {
		ptr := l.block.NewAlloca(llvmType(p.Type))
		l.block.NewStore(fn.Params[i], ptr)
		l.defineSlot(p.Name, ptr, llvmType(p.Type))
	}

	l.lowerBlock(fd.Body)

	// Only a VOID function gets an implicit terminator. A non-void function
	// whose last block falls off the end without a return is left
	// unterminated on purpose, so VerifyBlockTerminators catches the
	// missing-return path instead of it silently returning zero.
	if l.block.Term == nil && fd.ReturnType == VOID {
		l.block.NewRet(nil)
	}

	l.popScope()
}

func (l *Lowerer) lowerBlock(b *Block) {
	l.pushScope()
	for _, stmt := range b.Statements {
		if l.block.Term != nil {
			break // unreachable code after a terminator (e.g. after return)
		}
		l.lowerStmt(stmt)
	}
	l.popScope()
}

func (l *Lowerer) lowerStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *Block:
		l.lowerBlock(s)
	case *VarDecl:
		l.lowerVarDecl(s)
	case *If:
		l.lowerIf(s)
	case *While:
		l.lowerWhile(s)
	case *Return:
		l.lowerReturn(s)
	case *ExprStmt:
		l.lowerExpr(s.Expression)
	}
}

func (l *Lowerer) lowerVarDecl(s *VarDecl) {
	typ := llvmType(s.Declared)
	ptr := l.block.NewAlloca(typ)
	l.defineSlot(s.Name, ptr, typ)

	if s.Initializer != nil {
		val := l.lowerExpr(s.Initializer)
		l.block.NewStore(l.coerce(val, typ), ptr)
	}
}

func (l *Lowerer) lowerIf(s *If) {
	thenBlock := l.fn.NewBlock("if.then")
	elseBlock := l.fn.NewBlock("if.else")
	mergeBlock := l.fn.NewBlock("if.merge")

	cond := l.lowerExpr(s.Condition)
	l.block.NewCondBr(cond, thenBlock, elseBlock)

	mergeReached := false
	l.block = thenBlock
	l.lowerStmt(s.Then)
	if l.block.Term == nil {
		l.block.NewBr(mergeBlock)
		mergeReached = true
	}

	l.block = elseBlock
	if s.Else != nil {
		l.lowerStmt(s.Else)
	}
	if l.block.Term == nil {
		l.block.NewBr(mergeBlock)
		mergeReached = true
	}

	l.block = mergeBlock
	if !mergeReached {
		// Both arms ended in a terminator, so nothing branches here.
		mergeBlock.NewUnreachable()
	}
}

func (l *Lowerer) lowerWhile(s *While) {
	headerBlock := l.fn.NewBlock("while.header")
	bodyBlock := l.fn.NewBlock("while.body")
	afterBlock := l.fn.NewBlock("while.after")

	l.block.NewBr(headerBlock)

	l.block = headerBlock
	cond := l.lowerExpr(s.Condition)
	l.block.NewCondBr(cond, bodyBlock, afterBlock)

	l.block = bodyBlock
	l.lowerStmt(s.Body)
	if l.block.Term == nil {
		l.block.NewBr(headerBlock)
	}

	l.block = afterBlock
}

func (l *Lowerer) lowerReturn(s *Return) {
	if s.Value == nil {
		l.block.NewRet(nil)
		return
	}
	val := l.lowerExpr(s.Value)
	l.block.NewRet(l.coerce(val, l.fn.Sig.RetType))
}

//  Expressions

func (l *Lowerer) lowerExpr(expr Expr) value.Value {
	switch e := expr.(type) {
	case *Literal:
		return l.lowerLiteral(e)
	case *Variable:
		s := l.resolveSlot(e.Name)
		return l.block.NewLoad(s.typ, s.ptr)
	case *Binary:
		return l.lowerBinary(e)
	case *Unary:
		return l.lowerUnary(e)
	case *Assignment:
		return l.lowerAssignment(e)
	case *Call:
		return l.lowerCall(e)
	default:
		return constant.NewInt(types.I32, 0)
	}
}

func (l *Lowerer) lowerLiteral(e *Literal) value.Value {
	switch e.Hint {
	case INT:
		return constant.NewInt(types.I32, parseIntLiteral(e.Value))
	case FLOAT_TYPE:
		return constant.NewFloat(types.Double, parseFloatLiteral(e.Value))
	case BOOL:
		if e.Value == "true" {
			return constant.NewInt(types.I1, 1)
		}
		return constant.NewInt(types.I1, 0)
	case STRING_TYPE:
		return l.lowerStringLiteral(e.Value)
	default:
		return constant.NewNull(types.I8Ptr)
	}
}

func (l *Lowerer) lowerStringLiteral(s string) value.Value {
	data := constant.NewCharArrayFromString(s + "\x00")
	arrType := types.NewArray(uint64(len(s)+1), types.I8)
	g := l.module.NewGlobalDef(l.newStringLabel(), data)
	g.Immutable = true
	zero := constant.NewInt(types.I32, 0)
	return constant.NewGetElementPtr(arrType, g, zero, zero)
}

func (l *Lowerer) lowerBinary(e *Binary) value.Value {
	left := l.lowerExpr(e.Left)
	right := l.lowerExpr(e.Right)
	isFloat := resolvedIsFloat(e.Left) || resolvedIsFloat(e.Right)

	if e.Op.isArithmetic() {
		if isFloat {
			left, right = l.promoteToFloat(left), l.promoteToFloat(right)
			return arithFloat(l.block, e.Op, left, right)
		}
		return arithInt(l.block, e.Op, left, right)
	}

	if e.Op.isComparison() {
		if isFloat {
			left, right = l.promoteToFloat(left), l.promoteToFloat(right)
			return l.block.NewFCmp(fcmpPred(e.Op), left, right)
		}
		return l.block.NewICmp(icmpPred(e.Op), left, right)
	}

	switch e.Op {
	case OpAnd:
		return l.block.NewAnd(left, right)
	case OpOr:
		return l.block.NewOr(left, right)
	default:
		return left
	}
}

func resolvedIsFloat(e Expr) bool {
	switch n := e.(type) {
	case *Literal:
		return n.ResolvedType == FLOAT_TYPE
	case *Variable:
		return n.ResolvedType == FLOAT_TYPE
	case *Binary:
		return n.ResolvedType == FLOAT_TYPE
	case *Unary:
		return n.ResolvedType == FLOAT_TYPE
	case *Call:
		return n.ResolvedType == FLOAT_TYPE
	case *Assignment:
		return n.ResolvedType == FLOAT_TYPE
	default:
		return false
	}
}

func (l *Lowerer) promoteToFloat(v value.Value) value.Value {
	if v.Type() == types.Double {
		return v
	}
	return l.block.NewSIToFP(v, types.Double)
}

// truncateToInt is promoteToFloat's symmetric counterpart: the INT↔FLOAT
// compatibility rule lets a FLOAT value flow into an INT slot or return,
// so that edge needs an explicit conversion too, not just the reverse.
func (l *Lowerer) truncateToInt(v value.Value) value.Value {
	if v.Type() == types.I32 {
		return v
	}
	return l.block.NewFPToSI(v, types.I32)
}

func arithInt(b *ir.Block, op OperatorType, l, r value.Value) value.Value {
	switch op {
	case OpAdd:
		return b.NewAdd(l, r)
	case OpSub:
		return b.NewSub(l, r)
	case OpMul:
		return b.NewMul(l, r)
	case OpDiv:
		return b.NewSDiv(l, r)
	default:
		return b.NewSRem(l, r)
	}
}

func arithFloat(b *ir.Block, op OperatorType, l, r value.Value) value.Value {
	switch op {
	case OpAdd:
		return b.NewFAdd(l, r)
	case OpSub:
		return b.NewFSub(l, r)
	case OpMul:
		return b.NewFMul(l, r)
	case OpDiv:
		return b.NewFDiv(l, r)
	default:
		return b.NewFRem(l, r)
	}
}

func icmpPred(op OperatorType) enum.IPred {
	switch op {
	case OpEq:
		return enum.IPredEQ
	case OpNe:
		return enum.IPredNE
	case OpLt:
		return enum.IPredSLT
	case OpLe:
		return enum.IPredSLE
	case OpGt:
		return enum.IPredSGT
	default:
		return enum.IPredSGE
	}
}

func fcmpPred(op OperatorType) enum.FPred {
	switch op {
	case OpEq:
		return enum.FPredOEQ
	case OpNe:
		return enum.FPredONE
	case OpLt:
		return enum.FPredOLT
	case OpLe:
		return enum.FPredOLE
	case OpGt:
		return enum.FPredOGT
	default:
		return enum.FPredOGE
	}
}

func (l *Lowerer) lowerUnary(e *Unary) value.Value {
	operand := l.lowerExpr(e.Operand)
	switch e.Op {
	case OpNot:
		return l.block.NewXor(operand, constant.NewInt(types.I1, 1))
	case OpSub:
		if operand.Type() == types.Double {
			return l.block.NewFNeg(operand)
		}
		return l.block.NewSub(constant.NewInt(types.I32, 0), operand)
	default:
		return operand
	}
}

func (l *Lowerer) lowerAssignment(e *Assignment) value.Value {
	s := l.resolveSlot(e.Name)
	val := l.lowerExpr(e.Value)
	val = l.coerce(val, s.typ)
	l.block.NewStore(val, s.ptr)
	return val
}

// coerce inserts an int-to-float promotion or a float-to-int truncation
// when a value flows into a slot or return of the other numeric type;
// every other case is left as is because the semantic analyzer has
// already rejected true type mismatches.
func (l *Lowerer) coerce(v value.Value, want types.Type) value.Value {
	if want == types.Double && v.Type() != types.Double {
		return l.promoteToFloat(v)
	}
	if want == types.I32 && v.Type() == types.Double {
		return l.truncateToInt(v)
	}
	return v
}

func (l *Lowerer) lowerCall(e *Call) value.Value {
	args := make([]value.Value, len(e.Args))
	for i, arg := range e.Args {
		args[i] = l.lowerExpr(arg)
	}

	switch e.Name {
	case "print":
		format := l.lowerStringLiteral("%s\n")
		callArgs := append([]value.Value{format}, args...)
		return l.block.NewCall(l.builtins["__printf"], callArgs...)
	case "sqrt", "input":
		return l.block.NewCall(l.builtins[e.Name], args...)
	default:
		fn, ok := l.functions[e.Name]
		if !ok {
			// The semantic analyzer already rejects unknown calls; this
			// path is unreachable for a program with no diagnostics.
			return constant.NewInt(types.I32, 0)
		}
		return l.block.NewCall(fn, args...)
	}
}
