// Package errors re-exports github.com/cockroachdb/errors so the rest of the
// module wraps, annotates and inspects errors through one import.
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	FlattenHints = crdb.FlattenHints
	GetAllHints  = crdb.GetAllHints
)

// Error inspection
var (
	Is        = crdb.Is
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Common sentinel errors.
var (
	// ErrInvalidConfig indicates configuration failed validation.
	ErrInvalidConfig = New("invalid configuration")

	// ErrAlreadyRunning indicates a run was requested while another is in flight.
	ErrAlreadyRunning = New("run already in progress")

	// ErrUnsupportedDriver indicates a connection descriptor names an unknown database.
	ErrUnsupportedDriver = New("unsupported database driver")
)
