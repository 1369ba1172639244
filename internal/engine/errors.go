package engine

import (
	"errors"
	"fmt"

	"github.com/kcosr/symgrep/internal/index"
	"github.com/kcosr/symgrep/internal/query"
)

// Kind classifies an engine failure. Per-file parse failures are not
// represented here: they degrade the affected file only and never
// surface as an operation error.
type Kind string

const (
	// KindInvalidQuery covers lex/parse errors, unknown fields, and
	// empty patterns.
	KindInvalidQuery Kind = "invalid_query"
	// KindInvalidConfig covers missing paths, conflicting backends, and
	// malformed globs.
	KindInvalidConfig Kind = "invalid_config"
	// KindIo covers filesystem and backend I/O failures.
	KindIo Kind = "io_error"
	// KindIndex covers schema mismatches, corrupt metadata, SQL
	// integrity errors, and ambiguous attribute selectors.
	KindIndex Kind = "index_error"
	// KindVersionMismatch is raised when an index carries a newer
	// schema_version than this build supports.
	KindVersionMismatch Kind = "version_mismatch"
)

// Error is the single error type public operations return.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an operation error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func invalidQueryf(format string, args ...any) error {
	return &Error{Kind: KindInvalidQuery, Err: fmt.Errorf(format, args...)}
}

func invalidConfigf(format string, args ...any) error {
	return &Error{Kind: KindInvalidConfig, Err: fmt.Errorf(format, args...)}
}

// wrapErr maps lower-layer failures onto the taxonomy.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var parseErr *query.ParseError
	switch {
	case errors.As(err, &parseErr):
		return &Error{Kind: KindInvalidQuery, Err: err}
	case errors.Is(err, index.ErrVersionMismatch):
		return &Error{Kind: KindVersionMismatch, Err: err}
	case errors.Is(err, index.ErrCorrupt),
		errors.Is(err, index.ErrSelectorNoMatch),
		errors.Is(err, index.ErrSelectorAmbiguous):
		return &Error{Kind: KindIndex, Err: err}
	}
	return &Error{Kind: KindIo, Err: err}
}
