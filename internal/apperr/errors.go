package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrStagingFailed   = errors.New("staging failed")
	ErrGraphRejected   = errors.New("graph rejected")
	ErrArchiveNotReady = errors.New("archive not ready")
)
