package cmd

import (
	"fmt"
	"io"

	"crptapi/internal/crpt"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case crpt.IsKind(err, crpt.KindInterrupted):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// ReportError writes err to w and returns the exit code for it.
func ReportError(w io.Writer, err error) int {
	code := ExitCode(err)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return code
}
