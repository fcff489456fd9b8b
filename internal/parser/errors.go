package parser

import "fmt"

// The pipeline surfaces four failure classes. Schema violations are typed
// in internal/schema (schema.ValidationError) since the schema gate also
// serves the PUT route; everything else lives here.

// ValidationError rejects bad input (size, MIME, zero pages) before any
// external call is made. Callers should not retry with the same upload.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid upload: " + e.Reason
}

// ExtractionFailedError reports that both OCR strategies failed. Both
// causes are carried so the caller can log and decide to resubmit.
type ExtractionFailedError struct {
	PrimaryErr   error
	SecondaryErr error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("both OCR strategies failed: primary: %v; secondary: %v", e.PrimaryErr, e.SecondaryErr)
}

func (e *ExtractionFailedError) Unwrap() []error {
	return []error{e.PrimaryErr, e.SecondaryErr}
}

// UnparsableResultError reports that JSON repair was exhausted. Raw carries
// the last text attempted, for diagnostics only; it never reaches clients.
type UnparsableResultError struct {
	Raw string
	Err error
}

func (e *UnparsableResultError) Error() string {
	return fmt.Sprintf("combined output is not parsable JSON after repair: %v", e.Err)
}

func (e *UnparsableResultError) Unwrap() error {
	return e.Err
}
