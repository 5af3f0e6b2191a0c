package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"formcheck/internal/engine"
	"formcheck/internal/form"
	dErrors "formcheck/pkg/domain-errors"
)

// runLines reads one command per line:
//
//	field=value   edit a field (canonical or data-tipo name)
//	:submit       validate every editable field
//	:show         print the current field values
//	:settle       wait for pending address lookups
//	:quit         stop
//
// Blank lines and lines starting with # are ignored.
func runLines(ctx context.Context, session *engine.Session, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			quit, err := runLine(ctx, session, strings.TrimSpace(line), out)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func runLine(ctx context.Context, session *engine.Session, line string, out io.Writer) (bool, error) {
	switch {
	case line == "" || strings.HasPrefix(line, "#"):
		return false, nil
	case line == ":quit":
		return true, nil
	case line == ":settle":
		return false, session.Settle(ctx)
	case line == ":show":
		fields, err := session.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		printFields(out, fields)
		return false, nil
	case line == ":submit":
		outcomes, err := session.Submit(ctx)
		if err != nil {
			return false, err
		}
		printSummary(out, outcomes)
		return false, nil
	}

	name, value, ok := strings.Cut(line, "=")
	if !ok {
		fmt.Fprintf(out, "? expected field=value or a :command, got %q\n", line)
		return false, nil
	}
	t, err := form.ParseFieldType(name)
	if err != nil {
		fmt.Fprintf(out, "? %v\n", err)
		return false, nil
	}
	if _, err := session.Edit(ctx, t, strings.TrimSpace(value)); err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		fmt.Fprintf(out, "? %s: %s\n", t, userMessage(err))
	}
	return false, nil
}

// userMessage drops the internal code of a coded error.
func userMessage(err error) string {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}

func printFields(out io.Writer, fields []form.Field) {
	for _, f := range fields {
		lock := ""
		if f.Disabled {
			lock = " (locked)"
		}
		fmt.Fprintf(out, "  %-11s %q%s\n", f.Type, f.Value, lock)
	}
}

func printSummary(out io.Writer, outcomes []form.Outcome) {
	invalid := 0
	for _, o := range outcomes {
		if !o.Valid {
			invalid++
		}
	}
	if invalid == 0 {
		fmt.Fprintln(out, "form accepted")
		return
	}
	fmt.Fprintf(out, "form rejected: %d invalid field(s)\n", invalid)
}
