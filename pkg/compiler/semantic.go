package compiler

// SemanticAnalyzer walks a Program, resolving every expression's DataType,
// enforcing scoping and type-compatibility rules, and accumulating
// diagnostics rather than stopping at the first one.
type SemanticAnalyzer struct {
	syms   *SymbolTable
	diags  Diagnostics
	source []string

	inFunction      bool
	currentReturn   DataType
	sawReturnInFunc bool
}

// NewSemanticAnalyzer returns an analyzer with a fresh, built-in-populated
// symbol table.
func NewSemanticAnalyzer(rawSource string) *SemanticAnalyzer {
	return &SemanticAnalyzer{syms: NewSymbolTable(), source: splitLines(rawSource)}
}

// Analyze type-checks program in place, annotating every expression node's
// ResolvedType, and returns the analyzer's SymbolTable (its global scope:
// built-ins and top-level declarations) together with the accumulated
// diagnostics, so the lowerer can reuse global function signatures.
func Analyze(program *Program, rawSource string) (*SymbolTable, Diagnostics) {
	a := NewSemanticAnalyzer(rawSource)
	// Top-level functions are declared before any body is analyzed, so a
	// call to a function defined later in the source (or mutual recursion)
	// resolves.
	for _, stmt := range program.Statements {
		if fd, ok := stmt.(*FuncDecl); ok {
			paramTypes := make([]DataType, len(fd.Params))
			for i, p := range fd.Params {
				paramTypes[i] = p.Type
			}
			a.syms.Insert(Symbol{Name: fd.Name, Type: FUNCTION_TYPE, IsFunction: true,
				Location: fd.Location, ParameterTypes: paramTypes, ReturnType: fd.ReturnType})
		}
	}
	for _, stmt := range program.Statements {
		a.analyzeStmt(stmt)
	}
	return a.syms, a.diags
}

func (a *SemanticAnalyzer) errorAt(loc SourceLocation, format string, args ...any) {
	line := ""
	if idx := loc.Line - 1; idx >= 0 && idx < len(a.source) {
		line = a.source[idx]
	}
	a.diags.addWithSource(loc, line, format, args...)
}

//  Statements

func (a *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *Block:
		a.syms.EnterScope()
		for _, inner := range s.Statements {
			a.analyzeStmt(inner)
		}
		a.syms.ExitScope()
	case *VarDecl:
		a.analyzeVarDecl(s)
	case *FuncDecl:
		a.analyzeFuncDecl(s)
	case *If:
		a.analyzeIf(s)
	case *While:
		a.analyzeWhile(s)
	case *Return:
		a.analyzeReturn(s)
	case *ExprStmt:
		a.analyzeExpr(s.Expression)
	}
}

func (a *SemanticAnalyzer) analyzeVarDecl(s *VarDecl) {
	if _, exists := a.syms.LookupCurrentScope(s.Name); exists {
		a.errorAt(s.Location, "'%s' is already declared in this scope", s.Name)
	}

	declared := s.Declared
	var initType DataType = UNKNOWN
	if s.Initializer != nil {
		initType = a.analyzeExpr(s.Initializer)
	}

	switch {
	case s.HasAnnotated && s.Initializer != nil:
		if !compatible(declared, initType) {
			a.errorAt(s.Location, "cannot assign %s to variable '%s' of type %s", initType, s.Name, declared)
		}
	case s.HasAnnotated:
		// no initializer: keep the declared type
	case s.Initializer != nil:
		declared = initType
	default:
		a.errorAt(s.Location, "variable '%s' needs a type annotation or initializer", s.Name)
		declared = UNKNOWN
	}

	a.syms.Insert(Symbol{
		Name:       s.Name,
		Type:       declared,
		IsConstant: s.Kind == DeclConst,
		Location:   s.Location,
	})
}

func (a *SemanticAnalyzer) analyzeFuncDecl(s *FuncDecl) {
	paramTypes := make([]DataType, len(s.Params))
	for i, p := range s.Params {
		paramTypes[i] = p.Type
	}

	// Inserted before the body is analyzed so a function can call itself.
	a.syms.Insert(Symbol{
		Name:           s.Name,
		Type:           FUNCTION_TYPE,
		IsFunction:     true,
		Location:       s.Location,
		ParameterTypes: paramTypes,
		ReturnType:     s.ReturnType,
	})

	outerInFunction, outerReturn, outerSaw := a.inFunction, a.currentReturn, a.sawReturnInFunc
	a.inFunction, a.currentReturn, a.sawReturnInFunc = true, s.ReturnType, false

	a.syms.EnterScope()
	for _, p := range s.Params {
		a.syms.Insert(Symbol{Name: p.Name, Type: p.Type, Location: s.Location})
	}
	for _, inner := range s.Body.Statements {
		a.analyzeStmt(inner)
	}
	a.syms.ExitScope()

	if s.ReturnType != VOID && !a.sawReturnInFunc {
		a.errorAt(s.Location, "function '%s' must return a value of type %s", s.Name, s.ReturnType)
	}

	a.inFunction, a.currentReturn, a.sawReturnInFunc = outerInFunction, outerReturn, outerSaw
}

func (a *SemanticAnalyzer) analyzeIf(s *If) {
	condType := a.analyzeExpr(s.Condition)
	if condType != BOOL && condType != UNKNOWN {
		a.errorAt(s.Condition.Loc(), "if condition must be bool, got %s", condType)
	}
	a.analyzeStmt(s.Then)
	if s.Else != nil {
		a.analyzeStmt(s.Else)
	}
}

func (a *SemanticAnalyzer) analyzeWhile(s *While) {
	condType := a.analyzeExpr(s.Condition)
	if condType != BOOL && condType != UNKNOWN {
		a.errorAt(s.Condition.Loc(), "while condition must be bool, got %s", condType)
	}
	a.analyzeStmt(s.Body)
}

func (a *SemanticAnalyzer) analyzeReturn(s *Return) {
	if !a.inFunction {
		a.errorAt(s.Location, "return outside of function")
		if s.Value != nil {
			a.analyzeExpr(s.Value)
		}
		return
	}

	a.sawReturnInFunc = true
	if s.Value == nil {
		if a.currentReturn != VOID {
			a.errorAt(s.Location, "function must return a value of type %s", a.currentReturn)
		}
		return
	}

	valType := a.analyzeExpr(s.Value)
	if !compatible(a.currentReturn, valType) {
		a.errorAt(s.Value.Loc(), "cannot return %s from function declared to return %s", valType, a.currentReturn)
	}
}

//  Expressions

func (a *SemanticAnalyzer) analyzeExpr(expr Expr) DataType {
	switch e := expr.(type) {
	case *Literal:
		e.ResolvedType = e.Hint
		return e.ResolvedType
	case *Variable:
		sym, ok := a.syms.Lookup(e.Name)
		if !ok {
			a.errorAt(e.Location, "undefined variable '%s'", e.Name)
			e.ResolvedType = UNKNOWN
			return UNKNOWN
		}
		e.ResolvedType = sym.Type
		return sym.Type
	case *Binary:
		return a.analyzeBinary(e)
	case *Unary:
		return a.analyzeUnary(e)
	case *Assignment:
		return a.analyzeAssignment(e)
	case *Call:
		return a.analyzeCall(e)
	default:
		return UNKNOWN
	}
}

func (a *SemanticAnalyzer) analyzeBinary(e *Binary) DataType {
	leftType := a.analyzeExpr(e.Left)
	rightType := a.analyzeExpr(e.Right)

	var result DataType
	switch {
	case e.Op.isArithmetic():
		if !leftType.IsNumeric() && leftType != UNKNOWN {
			a.errorAt(e.Left.Loc(), "operand of '%s' must be numeric, got %s", e.Op, leftType)
		}
		if !rightType.IsNumeric() && rightType != UNKNOWN {
			a.errorAt(e.Right.Loc(), "operand of '%s' must be numeric, got %s", e.Op, rightType)
		}
		if leftType == FLOAT_TYPE || rightType == FLOAT_TYPE {
			result = FLOAT_TYPE
		} else {
			result = INT
		}
	case e.Op.isComparison():
		if !compatible(leftType, rightType) {
			a.errorAt(e.Location, "cannot compare %s with %s", leftType, rightType)
		}
		result = BOOL
	case e.Op == OpAnd || e.Op == OpOr:
		if leftType != BOOL && leftType != UNKNOWN {
			a.errorAt(e.Left.Loc(), "operand of '%s' must be bool, got %s", e.Op, leftType)
		}
		if rightType != BOOL && rightType != UNKNOWN {
			a.errorAt(e.Right.Loc(), "operand of '%s' must be bool, got %s", e.Op, rightType)
		}
		result = BOOL
	default:
		result = UNKNOWN
	}

	e.ResolvedType = result
	return result
}

func (a *SemanticAnalyzer) analyzeUnary(e *Unary) DataType {
	operandType := a.analyzeExpr(e.Operand)
	var result DataType
	switch e.Op {
	case OpNot:
		if operandType != BOOL && operandType != UNKNOWN {
			a.errorAt(e.Operand.Loc(), "operand of '!' must be bool, got %s", operandType)
		}
		result = BOOL
	case OpSub:
		if !operandType.IsNumeric() && operandType != UNKNOWN {
			a.errorAt(e.Operand.Loc(), "operand of unary '-' must be numeric, got %s", operandType)
		}
		result = operandType
	default:
		result = UNKNOWN
	}
	e.ResolvedType = result
	return result
}

func (a *SemanticAnalyzer) analyzeAssignment(e *Assignment) DataType {
	sym, ok := a.syms.Lookup(e.Name)
	if !ok {
		a.errorAt(e.Location, "undefined variable '%s'", e.Name)
		a.analyzeExpr(e.Value)
		e.ResolvedType = UNKNOWN
		return UNKNOWN
	}
	if sym.IsConstant {
		a.errorAt(e.Location, "cannot assign to constant '%s'", e.Name)
	}

	valType := a.analyzeExpr(e.Value)
	if !compatible(sym.Type, valType) {
		a.errorAt(e.Value.Loc(), "cannot assign %s to '%s' of type %s", valType, e.Name, sym.Type)
	}
	e.ResolvedType = sym.Type
	return sym.Type
}

func (a *SemanticAnalyzer) analyzeCall(e *Call) DataType {
	argTypes := make([]DataType, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = a.analyzeExpr(arg)
	}

	sym, ok := a.syms.Lookup(e.Name)
	if !ok {
		a.errorAt(e.Location, "undefined function '%s'", e.Name)
		e.ResolvedType = UNKNOWN
		return UNKNOWN
	}
	if !sym.IsFunction {
		a.errorAt(e.Location, "'%s' is not a function", e.Name)
		e.ResolvedType = UNKNOWN
		return UNKNOWN
	}
	if len(argTypes) != len(sym.ParameterTypes) {
		a.errorAt(e.Location, "'%s' expects %d argument(s), got %d", e.Name, len(sym.ParameterTypes), len(argTypes))
	} else {
		for i, want := range sym.ParameterTypes {
			if !compatible(want, argTypes[i]) {
				a.errorAt(e.Args[i].Loc(), "argument %d to '%s' must be %s, got %s", i+1, e.Name, want, argTypes[i])
			}
		}
	}

	e.ResolvedType = sym.ReturnType
	return sym.ReturnType
}

// compatible is reflexive, tolerant of UNKNOWN on either side (so a single
// error at the point of origin doesn't cascade into unrelated diagnostics),
// and treats INT and FLOAT as mutually compatible.
func compatible(want, got DataType) bool {
	if want == got || want == UNKNOWN || got == UNKNOWN {
		return true
	}
	return want.IsNumeric() && got.IsNumeric()
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
