package analyses

import "errors"

var (
	// ErrInvalidInput covers wrong content types and undecodable images.
	// No engine call is made and no artifacts are written.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage covers artifact write/read failures after detection.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound is returned for retrieval of unknown filenames.
	ErrNotFound = errors.New("not found")
)

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeEngine     = "engine_error"
	ErrorCodeStorage    = "storage_error"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeInternal   = "internal_error"
)
