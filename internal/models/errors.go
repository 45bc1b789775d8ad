package models

import "errors"

var (
	// ErrInvalidSelection means a crop rectangle cannot be computed.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrRasterizationFailed means the source image could not be decoded.
	ErrRasterizationFailed = errors.New("rasterization failed")
	// ErrEncodingFailed means the cropped image could not be encoded.
	ErrEncodingFailed = errors.New("encoding failed")
	// ErrStoreUnavailable is transient; the whole attempt may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreRejected is permanent for the submitted input.
	ErrStoreRejected = errors.New("store rejected")

	ErrNotFound          = errors.New("not found")
	ErrUploadInProgress  = errors.New("upload already in progress")
	ErrInvalidTransition = errors.New("invalid upload state transition")
	ErrInvalidInquiry    = errors.New("invalid inquiry")
)
