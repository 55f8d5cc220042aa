package save

import (
	"errors"
	"fmt"
)

// ErrNoSave is returned by Load and ExportText when neither slot holds data.
var ErrNoSave = errors.New("save: no saved game")

// ValidationError reports a structurally invalid save document.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "save: invalid record: " + e.Reason
	}
	return fmt.Sprintf("save: invalid record: %s: %s", e.Field, e.Reason)
}

// ImportParseError reports import text that is not JSON at all.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string { return "save: import text is not valid JSON: " + e.Err.Error() }

func (e *ImportParseError) Unwrap() error { return e.Err }

// DeserializationError wraps the reason a record could not be turned into a session.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string { return "save: deserialize: " + e.Err.Error() }

func (e *DeserializationError) Unwrap() error { return e.Err }

// StoreError reports a failed read or write against a backing store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("save: store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
