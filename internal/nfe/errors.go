package nfe

import "fmt"

// ErrorKind classifies extraction failures. All kinds are per-document or
// per-item: they are collected into the batch error list and never abort a
// run.
type ErrorKind string

const (
	ErrNotFound     ErrorKind = "NotFound"
	ErrAccessDenied ErrorKind = "AccessDenied"
	ErrEncoding     ErrorKind = "EncodingError"
	ErrParse        ErrorKind = "ParseError"
	ErrExtraction   ErrorKind = "ExtractionError"
)

// DocumentError reports a failure to extract a document or one of its items.
type DocumentError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func newDocumentError(kind ErrorKind, path string, err error) *DocumentError {
	return &DocumentError{Kind: kind, Path: path, Err: err}
}
