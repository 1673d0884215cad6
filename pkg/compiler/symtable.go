package compiler

import (
	"fmt"
	"sort"
)

// Symbol is one bound name: a variable, parameter, or function.
type Symbol struct {
	Name           string
	Type           DataType
	IsFunction     bool
	IsConstant     bool
	Location       SourceLocation
	ParameterTypes []DataType // set only when IsFunction
	ReturnType     DataType   // set only when IsFunction
}

// SymbolTable is a stack of lexical scopes. Scope 0 is the global scope and
// is never popped; it is pre-populated with the built-in functions
// print, input, and sqrt.
type SymbolTable struct {
	scopes []map[string]Symbol
}

// NewSymbolTable returns a table with a single global scope containing the
// built-in functions.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{scopes: []map[string]Symbol{{}}}
	t.insertBuiltin("print", VOID, []DataType{STRING_TYPE})
	t.insertBuiltin("input", STRING_TYPE, nil)
	t.insertBuiltin("sqrt", FLOAT_TYPE, []DataType{FLOAT_TYPE})
	return t
}

func (t *SymbolTable) insertBuiltin(name string, ret DataType, params []DataType) {
	t.scopes[0][name] = Symbol{
		Name:           name,
		Type:           FUNCTION_TYPE,
		IsFunction:     true,
		ParameterTypes: params,
		ReturnType:     ret,
	}
}

// EnterScope pushes a new, empty scope.
func (t *SymbolTable) EnterScope() {
	t.scopes = append(t.scopes, map[string]Symbol{})
}

// ExitScope pops the innermost scope. It is a no-op on the global scope.
func (t *SymbolTable) ExitScope() {
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// Depth reports how many scopes are currently open, including global.
func (t *SymbolTable) Depth() int {
	return len(t.scopes)
}

// Insert adds sym to the innermost scope, overwriting any existing entry
// with the same name in that scope. Callers that need redeclaration
// diagnostics should check LookupCurrentScope first.
func (t *SymbolTable) Insert(sym Symbol) {
	t.scopes[len(t.scopes)-1][sym.Name] = sym
}

// Lookup searches from the innermost scope outward to the global scope.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// LookupCurrentScope searches only the innermost scope, for detecting
// redeclaration within the same block.
func (t *SymbolTable) LookupCurrentScope(name string) (Symbol, bool) {
	sym, ok := t.scopes[len(t.scopes)-1][name]
	return sym, ok
}

// String dumps every scope from global outward, one symbol per line, for
// debugging.
func (t *SymbolTable) String() string {
	out := ""
	for i, scope := range t.scopes {
		out += fmt.Sprintf("scope %d:\n", i)
		names := make([]string, 0, len(scope))
		for name := range scope {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out += fmt.Sprintf("  %s: %s\n", name, scope[name].Type)
		}
	}
	return out
}
