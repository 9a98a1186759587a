// Package errs holds the error taxonomy shared by the report engine and its
// collaborators. Every typed error carries the HTTP status it maps to.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrNotFound            = errors.New("not found")
)

// InvalidParameter is returned when a request is rejected before any work starts.
type InvalidParameter string

// NewInvalidParameter formats an InvalidParameter error.
func NewInvalidParameter(format string, args ...any) InvalidParameter {
	return InvalidParameter(fmt.Sprintf(format, args...))
}

func (e InvalidParameter) Code() int {
	return http.StatusBadRequest
}

func (e InvalidParameter) Error() string {
	return "invalid parameter: " + string(e)
}

func (e InvalidParameter) Is(target error) bool {
	return target == ErrInvalidParameter
}

// NotFound marks a lookup of something that does not exist.
type NotFound string

func NewNotFound(format string, args ...any) NotFound {
	return NotFound(fmt.Sprintf(format, args...))
}

func (e NotFound) Code() int {
	return http.StatusNotFound
}

func (e NotFound) Error() string {
	return string(e)
}

func (e NotFound) Is(target error) bool {
	return target == ErrNotFound
}

// Upstream wraps a failure of the sample store or status provider.
type Upstream struct {
	Op  string
	Err error
}

// NewUpstream wraps err, unless it is already an Upstream error.
func NewUpstream(op string, err error) error {
	var up *Upstream
	if errors.As(err, &up) {
		return err
	}
	return &Upstream{Op: op, Err: err}
}

func (e *Upstream) Code() int {
	return http.StatusServiceUnavailable
}

func (e *Upstream) Error() string {
	return fmt.Sprintf("upstream unavailable: %s: %v", e.Op, e.Err)
}

func (e *Upstream) Unwrap() error {
	return e.Err
}

func (e *Upstream) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// Code returns the HTTP status for err, 500 if it carries none.
func Code(err error) int {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return http.StatusInternalServerError
}
