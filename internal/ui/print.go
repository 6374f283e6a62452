package ui

import (
	"fmt"
	"io"
)

func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Success.Render(current.SymOK+" "+msg))
}

func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Error.Render(current.SymFail+" "+msg))
}

// Hint prints a muted follow-up line under an error.
func Hint(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Muted.Render("Hint: "+msg))
}
