package query

import (
	"errors"
	"fmt"
)

// queryError marks the error types produced by the query pipeline so callers
// can distinguish bad user input from infrastructure failures.
type queryError interface {
	error
	queryError()
}

// IsQueryError reports whether err (or anything it wraps) originated from
// query compilation: lexing, parsing, metatag validation, or macro expansion.
// These are user-input errors; retrying without changing the query text
// cannot succeed.
func IsQueryError(err error) bool {
	var qe queryError
	return errors.As(err, &qe)
}

// LexError reports a character outside the query grammar's alphabet.
type LexError struct {
	Char rune
	Pos  int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("illegal character %q at position %d", e.Char, e.Pos)
}

func (*LexError) queryError() {}

// SyntaxError reports malformed query structure, carrying the offending
// fragment.
type SyntaxError struct {
	Fragment string
	Pos      int
}

func (e *SyntaxError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("syntax error at position %d: unexpected end of query", e.Pos)
	}
	return fmt.Sprintf("syntax error at position %d near %q", e.Pos, e.Fragment)
}

func (*SyntaxError) queryError() {}

// UnknownMetatagError reports a metatag name missing from the registry.
type UnknownMetatagError struct {
	Name string
}

func (e *UnknownMetatagError) Error() string {
	return fmt.Sprintf("unknown metatag %q", e.Name)
}

func (*UnknownMetatagError) queryError() {}

// InvalidMetatagValueError reports a metatag value that is not valid for its
// mode: a stray backslash in plain mode or an uncompilable regular expression
// in regex mode.
type InvalidMetatagValueError struct {
	Name   string
	Mode   Mode
	Value  string
	Reason string
}

func (e *InvalidMetatagValueError) Error() string {
	return fmt.Sprintf("invalid %s value %q for metatag %q: %s", e.Mode, e.Value, e.Name, e.Reason)
}

func (*InvalidMetatagValueError) queryError() {}

// RecursionLimitError reports that compound-tag expansion did not reach a
// fixed point within the configured number of passes. Self-referential or
// mutually recursive compound tags are the expected cause.
type RecursionLimitError struct {
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("compound tag expansion did not converge after %d passes", e.Limit)
}

func (*RecursionLimitError) queryError() {}
