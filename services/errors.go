package services

// ErrorKind buckets domain failures so route handlers can map them to HTTP
// status codes without string matching.
type ErrorKind int

const (
	ErrValidation ErrorKind = iota // missing/malformed required input
	ErrConflict                    // resubmission of an already-verified record
	ErrNotFound                    // unknown record or employee
	ErrPolicy                      // legal input, disallowed by lifecycle rules
	ErrEvidenceUpload              // object storage failure, fatal to submission
)

type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func NewValidationError(msg string) *DomainError {
	return &DomainError{Kind: ErrValidation, Message: msg}
}

func NewConflictError(msg string) *DomainError {
	return &DomainError{Kind: ErrConflict, Message: msg}
}

func NewNotFoundError(msg string) *DomainError {
	return &DomainError{Kind: ErrNotFound, Message: msg}
}

func NewPolicyViolation(msg string) *DomainError {
	return &DomainError{Kind: ErrPolicy, Message: msg}
}

func NewEvidenceUploadError(msg string) *DomainError {
	return &DomainError{Kind: ErrEvidenceUpload, Message: msg}
}
