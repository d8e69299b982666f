package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationKind classifies a ValidationError.
type ValidationKind string

const (
	MalformedRange      ValidationKind = "malformed_range"
	OutOfBoundsRange    ValidationKind = "out_of_bounds_range"
	InvalidQualityTier  ValidationKind = "invalid_quality_tier"
	UnsupportedFileKind ValidationKind = "unsupported_file_kind"
	InsufficientInputs  ValidationKind = "insufficient_inputs"
	InvalidParameter    ValidationKind = "invalid_parameter"
)

// ValidationError is raised before any transformation runs and is never retried.
type ValidationError struct {
	Kind    ValidationKind
	Subject string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func MalformedRangeError(fragment string) error {
	return &ValidationError{
		Kind:    MalformedRange,
		Subject: fragment,
		Message: fmt.Sprintf("Invalid custom range format: %s. Expected format like '1-5'.", fragment),
	}
}

func OutOfBoundsRangeError(fragment string, total int) error {
	return &ValidationError{
		Kind:    OutOfBoundsRange,
		Subject: fragment,
		Message: fmt.Sprintf("Invalid page range: %s. Pages must be within 1 and %d and start must be less than or equal to end.", fragment, total),
	}
}

func InvalidQualityTierError(value string) error {
	return &ValidationError{
		Kind:    InvalidQualityTier,
		Subject: value,
		Message: fmt.Sprintf("Invalid quality: %q. Expected one of low, medium, high.", value),
	}
}

func UnsupportedFileKindError(name string, want Kind) error {
	return &ValidationError{
		Kind:    UnsupportedFileKind,
		Subject: name,
		Message: fmt.Sprintf("Unsupported file type: %s (expected %s)", name, want),
	}
}

func InsufficientInputsError(got, want int) error {
	msg := fmt.Sprintf("At least %d files are required, got %d.", want, got)
	if want == 2 {
		msg = "Please select at least two files to merge."
	} else if want == 1 {
		msg = "No files uploaded."
	}
	return &ValidationError{Kind: InsufficientInputs, Subject: fmt.Sprint(got), Message: msg}
}

func InvalidParameterError(name, reason string) error {
	return &ValidationError{
		Kind:    InvalidParameter,
		Subject: name,
		Message: fmt.Sprintf("Invalid %s: %s", name, reason),
	}
}

// CodecError reports an unreadable source or an unsupported conversion.
type CodecError struct {
	Op   string
	File string
	Err  error
}

func (e *CodecError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.File, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// PackagingError reports archive assembly failure.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string { return fmt.Sprintf("packaging failed: %v", e.Err) }

func (e *PackagingError) Unwrap() error { return e.Err }

var (
	ErrNoOutputProduced   = errors.New("no output files were produced")
	ErrNoContentExtracted = errors.New("no images found in the uploaded PDF files")
	ErrEmptyDocument      = errors.New("document has no pages")
)

// BatchError aggregates the failure records of a batch that produced nothing.
type BatchError struct {
	Failures []FailureRecord
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Message())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes every recorded cause to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// AllValidation reports whether every recorded failure is a validation error.
func (e *BatchError) AllValidation() bool {
	if len(e.Failures) == 0 {
		return false
	}
	for _, f := range e.Failures {
		if !IsValidation(f.Err) {
			return false
		}
	}
	return true
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrNoContentExtracted) {
		return http.StatusBadRequest
	}
	var be *BatchError
	if errors.As(err, &be) {
		if be.AllValidation() {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
	var pe *PackagingError
	var ce *CodecError
	switch {
	case errors.As(err, &pe), errors.As(err, &ce):
		return http.StatusInternalServerError
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoOutputProduced), errors.Is(err, ErrNoContentExtracted):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
