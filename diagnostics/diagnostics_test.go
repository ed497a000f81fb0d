package diagnostics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare",
			err:  New(KindEvaluation, CodeOverflow, "decimal overflow"),
			want: "evaluation error: decimal overflow",
		},
		{
			name: "with span",
			err:  NewSpanned(KindParse, CodeSyntax, Span{Start: 4, End: 7, Line: 1, Column: 5}, "unexpected token `%s`", "+"),
			want: "1:5: parse error: unexpected token `+`",
		},
		{
			name: "with library",
			err:  New(KindResolution, CodeLibraryNotFound, "library Common not found").WithLibrary("MyMeasure"),
			want: "MyMeasure: resolution error: library Common not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderUnderline(t *testing.T) {
	source := "library Test\ndefine X: Foo + 1\n"
	err := NewSpanned(KindSemantic, CodeUnresolvedIdentifier, Span{Start: 23, End: 26, Line: 2, Column: 11}, "could not resolve identifier `Foo`")

	got := Render(err, source)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), got)
	}
	if lines[1] != "  define X: Foo + 1" {
		t.Errorf("unexpected source line: %q", lines[1])
	}
	if lines[2] != "  "+strings.Repeat(" ", 10)+"^^^" {
		t.Errorf("unexpected underline: %q", lines[2])
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("context: %w", New(KindResolution, CodeCyclicInclude, "cyclic dependency: A -> B -> A"))
	if !IsCode(err, CodeCyclicInclude) {
		t.Error("expected wrapped error to match CodeCyclicInclude")
	}
	if IsCode(err, CodeLibraryNotFound) {
		t.Error("unexpected match for CodeLibraryNotFound")
	}
	if IsCode(errors.New("plain"), CodeCyclicInclude) {
		t.Error("plain error should not match")
	}
}

func TestSpanExtend(t *testing.T) {
	a := Span{Start: 3, End: 6, Line: 1, Column: 4}
	b := Span{Start: 8, End: 12, Line: 1, Column: 9}
	got := a.Extend(b)
	want := Span{Start: 3, End: 12, Line: 1, Column: 4}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if (Span{}).Extend(b) != b {
		t.Error("extending the zero span should return the other span")
	}
}

func TestListErr(t *testing.T) {
	var l List
	if l.Err() != nil {
		t.Error("empty list should have nil Err")
	}
	l.Append(New(KindParse, CodeSyntax, "one"))
	l.Append(New(KindParse, CodeSyntax, "two"))
	err := l.Err()
	if err == nil || !strings.Contains(err.Error(), "one") || !strings.Contains(err.Error(), "two") {
		t.Errorf("joined error missing parts: %v", err)
	}
}
