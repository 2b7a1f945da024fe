package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for fatal conditions of a run.
var (
	// ErrDocumentNotFound is returned when the source Markdown file cannot be read.
	ErrDocumentNotFound = errors.New("markdown file not found")
	// ErrWrite is returned when the rewritten document cannot be saved.
	ErrWrite = errors.New("failed to write output file")
	// ErrMissingToken is returned when no API token is configured.
	ErrMissingToken = errors.New("api token is required (config token, MDIMG_TOKEN or --token)")
	// ErrInvalidEndpoint is returned when the upload endpoint is not an absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("upload endpoint must be an absolute http(s) URL")
	// ErrMissingAlbum is returned when no album id was given.
	ErrMissingAlbum = errors.New("album id is required")
)

// UploadErrorKind classifies why a single upload failed.
type UploadErrorKind int

const (
	KindNotFound UploadErrorKind = iota + 1
	KindTransport
	KindHTTPStatus
	KindDecode
	KindApplication
)

// String returns the string representation of the UploadErrorKind
func (k UploadErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// UploadError is the only error type returned by an ImageUploader.
type UploadError struct {
	Kind    UploadErrorKind
	Path    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s failed (%s): %s", e.Path, e.Kind, e.Detail())
}

// Detail returns the failure description without the path and kind.
func (e *UploadError) Detail() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UploadErrorKindOf returns the kind of err when it is, or wraps, an UploadError.
func UploadErrorKindOf(err error) (UploadErrorKind, bool) {
	var upErr *UploadError
	if errors.As(err, &upErr) {
		return upErr.Kind, true
	}
	return 0, false
}
