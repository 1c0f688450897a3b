// Package diagnostics formats hardener errors and verifier verdicts for the
// terminal, in the same bold/dim/colored convention as the teacher's
// internal/errors.ErrorReporter.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"utxharden/internal/hardenerr"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
	red  = color.New(color.FgRed, color.Bold).SprintFunc()
	grn  = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// FormatError renders a *hardenerr.Error as a single multi-line diagnostic.
func FormatError(err *hardenerr.Error) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s[%s]: %s\n", red("error"), err.Code, err.Message())

	if err.Function != "" {
		loc := err.Function
		if err.Block != "" {
			loc = fmt.Sprintf("%s:%s", loc, err.Block)
		}
		if err.Instruction != "" {
			loc = fmt.Sprintf("%s:%s", loc, err.Instruction)
		}
		fmt.Fprintf(&b, "  %s %s\n", dim("-->"), loc)
	}

	fmt.Fprintf(&b, "  %s %s\n", dim("kind:"), bold(string(err.Kind)))

	return b.String()
}

// FormatVerdict renders a standalone Static Verifier result.
func FormatVerdict(function string, accept bool) string {
	if accept {
		return fmt.Sprintf("%s %s: accept\n", grn("verify"), bold(function))
	}
	return fmt.Sprintf("%s %s: reject\n", red("verify"), bold(function))
}
