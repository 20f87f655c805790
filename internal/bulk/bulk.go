// Package bulk runs one operation over a list of items, such as importing
// several adventure targets in a single command, and summarises the outcome.
package bulk

import (
	"context"
	"fmt"
	"io"
)

// Operation represents a bulk operation configuration
type Operation struct {
	ContinueOnError bool

	// Log receives one status line per item. Nil discards them.
	Log io.Writer
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Item  string
	Error error
}

// ItemFunc is the function to execute for each item
type ItemFunc func(ctx context.Context, item string) error

// Execute runs fn on each item in order. Items are processed one at a time;
// the remaining items are skipped after a failure unless ContinueOnError is
// set, and always once ctx is cancelled.
func (op *Operation) Execute(ctx context.Context, items []string, fn ItemFunc) *Result {
	result := &Result{
		TotalItems: len(items),
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			result.Skipped = len(items) - i
			op.logf("stopped: %v; %d item(s) not processed\n", err, result.Skipped)
			return result
		}

		if err := fn(ctx, item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Item: item, Error: err})
			op.logf("%s: error: %v\n", item, err)

			if !op.ContinueOnError {
				result.Skipped = len(items) - i - 1
				return result
			}
			continue
		}

		result.Succeeded++
		op.logf("%s: success\n", item)
	}

	return result
}

func (op *Operation) logf(format string, args ...interface{}) {
	if op.Log != nil {
		fmt.Fprintf(op.Log, format, args...)
	}
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && r.Skipped == 0 {
		return 0 // All succeeded
	}
	if r.Succeeded > 0 {
		return 5 // Partial success
	}
	return 1 // All failed
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "\n✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "\n✗ No operations succeeded: %d failed, %d skipped (out of %d)\n",
			r.Failed, r.Skipped, r.TotalItems)
	default:
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d failed, %d skipped (out of %d)\n",
			r.Succeeded, r.Failed, r.Skipped, r.TotalItems)
	}

	if len(r.Errors) == 0 {
		return
	}
	shown := r.Errors
	if len(shown) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(r.Errors))
		shown = shown[:10]
	} else {
		fmt.Fprintf(w, "\nErrors:\n")
	}
	for _, e := range shown {
		fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
	}
}
