package compiler

import (
	"strings"
	"testing"
)

func parseSrc(t *testing.T, src string) (*Program, Diagnostics) {
	t.Helper()
	tokens := Lex(src)
	return Parse(tokens, src)
}

func TestParseVarDeclWithAnnotationAndInitializer(t *testing.T) {
	prog, diags := parseSrc(t, "let x: int = 5;")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("want 1 statement, got %d", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*VarDecl)
	if !ok {
		t.Fatalf("want *VarDecl, got %T", prog.Statements[0])
	}
	if decl.Kind != DeclLet || decl.Name != "x" || decl.Declared != INT {
		t.Errorf("decl = %+v, want let x: int", decl)
	}
}

func TestParseFunctionCallWiresIntoPrimary(t *testing.T) {
	prog, diags := parseSrc(t, "print(\"hi\");")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	stmt, ok := prog.Statements[0].(*ExprStmt)
	if !ok {
		t.Fatalf("want *ExprStmt, got %T", prog.Statements[0])
	}
	call, ok := stmt.Expression.(*Call)
	if !ok {
		t.Fatalf("want *Call, got %T", stmt.Expression)
	}
	if call.Name != "print" || len(call.Args) != 1 {
		t.Errorf("call = %+v, want print(1 arg)", call)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	prog, diags := parseSrc(t, "1 + 2 * 3;")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	stmt := prog.Statements[0].(*ExprStmt)
	bin := stmt.Expression.(*Binary)
	if bin.Op != OpAdd {
		t.Fatalf("top operator = %s, want +", bin.Op)
	}
	rhs, ok := bin.Right.(*Binary)
	if !ok || rhs.Op != OpMul {
		t.Fatalf("right operand = %+v, want a * multiplication", bin.Right)
	}
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	prog, diags := parseSrc(t, "a = b = 1;")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	stmt := prog.Statements[0].(*ExprStmt)
	outer, ok := stmt.Expression.(*Assignment)
	if !ok || outer.Name != "a" {
		t.Fatalf("outer = %+v, want assignment to a", stmt.Expression)
	}
	inner, ok := outer.Value.(*Assignment)
	if !ok || inner.Name != "b" {
		t.Fatalf("inner = %+v, want assignment to b", outer.Value)
	}
}

func TestParseInvalidAssignmentTargetReportsDiagnostic(t *testing.T) {
	_, diags := parseSrc(t, "1 + 2 = 3;")
	if len(diags) == 0 {
		t.Fatal("want a diagnostic for an invalid assignment target")
	}
	if !strings.Contains(diags.Error(), "Invalid assignment target") {
		t.Errorf("diags = %v, want mention of invalid assignment target", diags)
	}
}

func TestParseIfElseDanglingElseBindsToNearest(t *testing.T) {
	prog, diags := parseSrc(t, "if (true) if (false) x = 1; else x = 2;")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	outer := prog.Statements[0].(*If)
	inner, ok := outer.Then.(*If)
	if !ok {
		t.Fatalf("outer.Then = %T, want nested *If", outer.Then)
	}
	if inner.Else == nil {
		t.Fatal("dangling else should bind to the nearest if")
	}
	if outer.Else != nil {
		t.Fatal("outer if should have no else branch")
	}
}

func TestParseFuncDeclWithParamsAndReturnType(t *testing.T) {
	prog, diags := parseSrc(t, "function add(a: int, b: int): int { return a + b; }")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	fn := prog.Statements[0].(*FuncDecl)
	if fn.Name != "add" || fn.ReturnType != INT || len(fn.Params) != 2 {
		t.Fatalf("fn = %+v", fn)
	}
	if fn.Params[0].Name != "a" || fn.Params[0].Type != INT {
		t.Errorf("param 0 = %+v", fn.Params[0])
	}
}

func TestParseSyntaxErrorRecoversAtNextStatement(t *testing.T) {
	prog, diags := parseSrc(t, "let x = ; let y = 2;")
	if len(diags) == 0 {
		t.Fatal("want at least one diagnostic")
	}
	// The parser should still recover and parse the second declaration.
	var foundY bool
	for _, stmt := range prog.Statements {
		if decl, ok := stmt.(*VarDecl); ok && decl.Name == "y" {
			foundY = true
		}
	}
	if !foundY {
		t.Error("parser did not recover far enough to parse 'let y = 2;'")
	}
}

func TestParseUnknownTypeIsSyntaxError(t *testing.T) {
	_, diags := parseSrc(t, "let x: wat = 1;")
	if len(diags) == 0 {
		t.Fatal("want a diagnostic for an unknown type name")
	}
}
