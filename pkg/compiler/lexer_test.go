package compiler

import "testing"

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, src string, want []TokenKind) {
	t.Helper()
	got := kinds(Lex(src))
	if len(got) != len(want) {
		t.Fatalf("Lex(%q) = %d tokens, want %d\ngot:  %v\nwant: %v", src, len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Lex(%q)[%d] = %s, want %s", src, i, got[i], want[i])
		}
	}
}

func TestLexKeywordsAndIdentifiers(t *testing.T) {
	assertKinds(t, "if else while for return function var let const true false null foo",
		[]TokenKind{IF, ELSE, WHILE, FOR, RETURN, FUNCTION, VAR, LET, CONST, TRUE, FALSE, NULL, IDENTIFIER, EOF})
}

func TestLexNumberClassification(t *testing.T) {
	tests := []struct {
		src  string
		kind TokenKind
	}{
		{"42", INTEGER},
		{"3.14", FLOAT},
		{"0", INTEGER},
	}
	for _, tt := range tests {
		toks := Lex(tt.src)
		if toks[0].Kind != tt.kind {
			t.Errorf("Lex(%q)[0].Kind = %s, want %s", tt.src, toks[0].Kind, tt.kind)
		}
		if toks[0].Lexeme != tt.src {
			t.Errorf("Lex(%q)[0].Lexeme = %q, want %q", tt.src, toks[0].Lexeme, tt.src)
		}
	}
}

func TestLexTwoDotsSplitsAtSecondDot(t *testing.T) {
	toks := Lex("1.2.3")
	assertKinds(t, "1.2.3", []TokenKind{FLOAT, DOT, INTEGER, EOF})
	if toks[0].Lexeme != "1.2" {
		t.Errorf("first token lexeme = %q, want \"1.2\"", toks[0].Lexeme)
	}
	if toks[2].Lexeme != "3" {
		t.Errorf("third token lexeme = %q, want \"3\"", toks[2].Lexeme)
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := Lex(`"hello\nworld\t\"quoted\""`)
	if toks[0].Kind != STRING {
		t.Fatalf("Kind = %s, want STRING", toks[0].Kind)
	}
	want := "hello\nworld\t\"quoted\""
	if toks[0].Lexeme != want {
		t.Errorf("Lexeme = %q, want %q", toks[0].Lexeme, want)
	}
}

func TestLexUnterminatedString(t *testing.T) {
	toks := Lex(`"abc`)
	if toks[0].Kind != ERROR {
		t.Fatalf("Kind = %s, want ERROR", toks[0].Kind)
	}
}

func TestLexTwoByteOperators(t *testing.T) {
	assertKinds(t, "== != <= >= && ||",
		[]TokenKind{EQUAL_EQUAL, BANG_EQUAL, LESS_EQUAL, GREATER_EQUAL, AND_AND, OR_OR, EOF})
}

func TestLexSingleByteOperatorsDoNotGreedilyConsume(t *testing.T) {
	assertKinds(t, "= ! < >",
		[]TokenKind{ASSIGN, BANG, LESS, GREATER, EOF})
}

func TestLexLoneAmpersandIsError(t *testing.T) {
	toks := Lex("a & b")
	if toks[1].Kind != ERROR {
		t.Fatalf("Kind = %s, want ERROR", toks[1].Kind)
	}
}

func TestLexSkipsLineComments(t *testing.T) {
	assertKinds(t, "foo // a comment\nbar", []TokenKind{IDENTIFIER, IDENTIFIER, EOF})
}

func TestLexAlwaysEndsInEOF(t *testing.T) {
	toks := Lex("")
	if len(toks) != 1 || toks[0].Kind != EOF {
		t.Fatalf("Lex(\"\") = %v, want single EOF", toks)
	}
}
