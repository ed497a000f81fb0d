package diagnostics

import (
	"strings"
)

// Render formats the error for terminal display, including the offending
// source line with a single underline beneath the span.
//
// Example output:
//
//	MyLib: 3:11: semantic error: could not resolve identifier `Foo`
//	  define X: Foo + 1
//	            ^^^
func Render(e *Error, source string) string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Span == nil || source == "" {
		return b.String()
	}

	line, ok := sourceLine(source, e.Span.Line)
	if !ok {
		return b.String()
	}

	b.WriteString("\n  ")
	b.WriteString(strings.ReplaceAll(line, "\t", " "))
	b.WriteString("\n  ")

	width := e.Span.End - e.Span.Start
	if width < 1 {
		width = 1
	}
	if width > len(line)-(e.Span.Column-1) {
		width = max(1, len(line)-(e.Span.Column-1))
	}
	b.WriteString(strings.Repeat(" ", e.Span.Column-1))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

func sourceLine(source string, line int) (string, bool) {
	if line < 1 {
		return "", false
	}
	for i, l := range strings.Split(source, "\n") {
		if i+1 == line {
			return strings.TrimRight(l, "\r"), true
		}
	}
	return "", false
}

// RenderAll renders every error in the list, one per paragraph.
func RenderAll(errs List, source string) string {
	rendered := make([]string, len(errs))
	for i, e := range errs {
		rendered[i] = Render(e, source)
	}
	return strings.Join(rendered, "\n\n")
}
