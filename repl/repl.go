// Package repl SPDX-License-Identifier: Apache-2.0
//
// The repl reads IR functions interactively and prints them after the
// configured passes have run.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	diag "constfold/internal/errors"
	"constfold/internal/ir"
)

const (
	PROMPT       = ">> "
	CONTINUATION = ".. "
	sourceName   = "<repl>"
)

// Start reads entries from in until EOF. An entry ends when every "{" seen
// so far has been closed; a blank line discards an unfinished entry.
func Start(in io.Reader, out io.Writer, passes []string) error {
	if _, err := ir.NewPipelineFromNames(passes); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	var (
		entry  strings.Builder
		depth  int
		opened bool
	)

	fmt.Fprint(out, PROMPT)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" && entry.Len() > 0 && depth > 0 {
			fmt.Fprintln(out, "discarded unfinished entry")
			entry.Reset()
			depth, opened = 0, false
			fmt.Fprint(out, PROMPT)
			continue
		}

		entry.WriteString(line)
		entry.WriteByte('\n')
		delta, sawOpen := braceDelta(line)
		depth += delta
		opened = opened || sawOpen

		if depth < 0 {
			fmt.Fprintln(out, "discarded entry with unbalanced '}'")
			entry.Reset()
			depth, opened = 0, false
			fmt.Fprint(out, PROMPT)
			continue
		}

		if opened && depth <= 0 {
			Eval(out, entry.String(), passes)
			entry.Reset()
			depth, opened = 0, false
		}

		if entry.Len() > 0 {
			fmt.Fprint(out, CONTINUATION)
		} else {
			fmt.Fprint(out, PROMPT)
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

// Eval builds source, runs passes over it and writes either the diagnostics
// or the resulting IR followed by the rewrite log.
func Eval(out io.Writer, source string, passes []string) {
	program, diagnostics := ir.BuildSource(sourceName, source)
	fmt.Fprint(out, diag.NewErrorReporter(sourceName, source).FormatAll(diagnostics))
	if program == nil {
		return
	}

	pipeline, err := ir.NewPipelineFromNames(passes)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "error: %v\n", err)
		return
	}
	pipeline.Run(program)
	if err := pipeline.Err(); err != nil {
		color.New(color.FgRed).Fprintf(out, "Verification failed:\n%v\n", err)
		return
	}

	for _, fn := range program.Functions {
		fmt.Fprint(out, ir.PrintFunction(fn))
	}
	faint := color.New(color.Faint)
	for _, rewrite := range pipeline.Rewrites() {
		faint.Fprintf(out, "; %s\n", rewrite)
	}
}

// braceDelta counts braces outside comments
func braceDelta(line string) (int, bool) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	open := strings.Count(line, "{")
	return open - strings.Count(line, "}"), open > 0
}
