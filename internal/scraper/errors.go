package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig reports a run that could not start because of its inputs.
	ErrConfig = errors.New("invalid scrape configuration")

	// ErrListReferences wraps failures of Adapter.References.
	ErrListReferences = errors.New("listing references")
)

// ErrorKind classifies a per-reference failure.
type ErrorKind string

const (
	KindTransient  ErrorKind = "transient"
	KindPermanent  ErrorKind = "permanent"
	KindExtraction ErrorKind = "extraction"
)

// FetchError is returned by fetchers. Transient failures may succeed on a
// later run; permanent ones will not.
type FetchError struct {
	Kind ErrorKind
	Ref  Reference
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Ref.ID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a transient fetch failure of ref.
func Transient(ref Reference, err error) error {
	return &FetchError{Kind: KindTransient, Ref: ref, Err: err}
}

// Permanent wraps err as a permanent fetch failure of ref.
func Permanent(ref Reference, err error) error {
	return &FetchError{Kind: KindPermanent, Ref: ref, Err: err}
}

// ExtractionError reports a page the adapter could not turn into a record.
type ExtractionError struct {
	Ref Reference
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Ref.ID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err. Errors that carry no kind
// are treated as transient.
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return KindExtraction
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	return KindTransient
}
