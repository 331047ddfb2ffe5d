package domain

import "fmt"

// FormatError reports input that cannot be parsed as well-formed structure
// at all: no header line in an RDB document, or XML that does not parse.
// Per-cell and per-point irregularities never produce a FormatError; they
// degrade to null cells instead.
type FormatError struct {
	Doc   string // document kind: "rdb" or "waterml"
	Stage string // parse stage that failed
	Err   error  // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Doc, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Doc, e.Stage)
}

func (e *FormatError) Unwrap() error { return e.Err }
