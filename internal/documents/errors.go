package documents

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrUnknownDocType       = errors.New("unknown document type")
	ErrIdentifierLength     = errors.New("identifier must be exactly 12 digits")
	ErrFileTooLarge         = errors.New("file too large")
	ErrFileType             = errors.New("file type not allowed")
	ErrAuthRequired         = errors.New("authentication required")
	ErrDuplicateType        = errors.New("document type already uploaded")
	ErrPathCollision        = errors.New("object already exists at path")
	ErrNotFound             = errors.New("document not found")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	ErrNoDownloadURL        = errors.New("document has no download url")
)

// IsValidation reports whether err is a precondition failure raised before
// any store was touched.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrUnknownDocType) ||
		errors.Is(err, ErrIdentifierLength) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrFileType)
}

// PartialFailureError reports a mutation that stopped after the blob store
// changed but before metadata caught up, leaving the two out of step.
type PartialFailureError struct {
	Op       string
	Step     string
	FilePath string
	Err      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially failed at %s (blob %s): %v", e.Op, e.Step, e.FilePath, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
