package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrUpstreamUnavailable marks a competitor data source that could not
	// produce a usable answer. Callers recover with an empty competitor list.
	ErrUpstreamUnavailable = eris.New("upstream unavailable")

	// ErrRasterUnavailable marks density sampling that could not run.
	// Callers recover with the non-density demand heuristic.
	ErrRasterUnavailable = eris.New("raster unavailable")

	// ErrModelUnavailable is returned by the viability predictor when no
	// model is loaded. It is the only engine error surfaced to users.
	ErrModelUnavailable = eris.New("viability model unavailable")
)

// ValidationError reports a malformed or out-of-range request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamKind classifies why an upstream call failed.
type UpstreamKind string

const (
	UpstreamDown      UpstreamKind = "down"
	UpstreamTimeout   UpstreamKind = "timeout"
	UpstreamMalformed UpstreamKind = "malformed"
)

// UpstreamError is a competitor data source failure. It matches
// ErrUpstreamUnavailable under errors.Is regardless of Kind, so callers that
// only care about continuity need not inspect it.
type UpstreamError struct {
	Source string
	Kind   UpstreamKind
	Err    error
}

// NewUpstreamError wraps err as an upstream failure of the given kind.
func NewUpstreamError(source string, kind UpstreamKind, err error) *UpstreamError {
	return &UpstreamError{Source: source, Kind: kind, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: upstream %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: upstream %s: %v", e.Source, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}
