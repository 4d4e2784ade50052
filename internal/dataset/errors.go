package dataset

import (
	"fmt"
	"strings"
)

// LoadError indicates a table file was missing or unreadable. Fatal.
type LoadError struct {
	Table string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading table %q from %s: %v", e.Table, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SchemaError indicates required columns are absent from a table. Fatal.
// It carries the full list of missing columns so the caller sees every
// problem at once instead of fixing them one by one.
type SchemaError struct {
	Table   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q is missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
}
