package selq

import (
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateAlias is raised by a join whose alias is already used by the
	// statement's base source or by an earlier join.
	ErrDuplicateAlias = errors.New("[selq] alias already in use")

	// ErrMalformedSelection is raised for an empty explicit selection or for a
	// selection referencing a source that is not part of the statement.
	ErrMalformedSelection = errors.New("[selq] malformed selection")

	// ErrCompile wraps failures reported while rendering the statement.
	ErrCompile = errors.New("[selq] compile")

	// ErrNoSession is returned by the execution helpers of a builder created
	// without a session.
	ErrNoSession = errors.New("[selq] no session configured")

	// ErrMissingParam is returned when a placeholder has no value at execution.
	ErrMissingParam = errors.New("[selq] missing placeholder value")
)

// compileError marks err as a compile failure while keeping the original
// error reachable through errors.Cause and errors.Is.
type compileError struct {
	err error
}

func (e *compileError) Error() string {
	return ErrCompile.Error() + ": " + e.err.Error()
}

func (e *compileError) Unwrap() error {
	return e.err
}

func (e *compileError) Is(target error) bool {
	return target == ErrCompile
}

func (e *compileError) Cause() error {
	return e.err
}

func newCompileError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCompile) {
		return err
	}
	return &compileError{err: err}
}
